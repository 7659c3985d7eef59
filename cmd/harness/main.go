package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/vidinfra/subqa/internal/client/checkout"
	"github.com/vidinfra/subqa/internal/client/membership"
	"github.com/vidinfra/subqa/internal/config"
	"github.com/vidinfra/subqa/internal/httpclient"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/service"
)

func main() {
	testFile := flag.String("file", "", "Path to the test definition CSV file")
	testID := flag.String("test", "", "Run only the test case with this id")
	flag.Parse()

	if *testFile == "" {
		log.Fatal("usage: harness -file <test_cases.csv> [-test <test_id>]")
	}

	// Local .env is optional; real deployments use environment variables
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpClient := httpclient.NewDefaultClient(cfg.Membership.Timeout)
	membershipClient := membership.NewClient(httpClient, cfg.Membership, logger)
	checkoutClient := checkout.NewClient(httpClient, cfg.Checkout, logger)

	catalog := cfg.Catalog()
	confirm := service.NewConsoleConfirmation(os.Stdin, os.Stdout, logger)
	checkoutVerifier := service.NewCheckoutVerifier(catalog, logger)
	actions := service.NewActionRunner(
		membershipClient,
		checkoutClient,
		checkoutVerifier,
		catalog,
		cfg.Cards,
		confirm,
		logger,
	)

	runner := service.NewRunner(
		cfg,
		membershipClient,
		actions,
		service.NewCaptureService(membershipClient, logger),
		service.NewExpectationService(logger),
		service.NewUserVerifier(logger),
		service.NewAdminVerifier(membershipClient, logger),
		logger,
	)

	loader := service.NewCaseLoader(logger)

	var cases []service.TestCase
	if *testID != "" {
		tc, err := loader.LoadByID(*testFile, *testID)
		if err != nil {
			logger.Fatalw("failed to load test case", "file", *testFile, "test_id", *testID, "error", err)
		}
		cases = []service.TestCase{tc}
	} else {
		cases, err = loader.Load(*testFile)
		if err != nil {
			logger.Fatalw("failed to load test cases", "file", *testFile, "error", err)
		}
	}

	results := runner.RunAll(ctx, cases)

	reporter := service.NewReporter(cfg.Run.ReportDir, logger)
	if _, _, err := reporter.Write(results); err != nil {
		logger.Errorw("failed to write reports", "error", err)
	}
	reporter.LogSummary(results)

	if lo.SomeBy(results, func(r service.TestResult) bool { return !r.Passed() }) {
		os.Exit(1)
	}
}
