package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/types"
)

type Configuration struct {
	Membership MembershipConfig `mapstructure:"membership" validate:"required"`
	Checkout   CheckoutConfig   `mapstructure:"checkout" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Run        RunConfig        `mapstructure:"run"`

	// Plans is the subscription-type catalog keyed by symbolic name.
	Plans map[string]subscription.PlanConfig `mapstructure:"plans" validate:"required"`

	Locations Locations           `mapstructure:"locations"`
	Cards     map[string]TestCard `mapstructure:"cards"`
	Actions   map[string]Action   `mapstructure:"actions" validate:"required"`
}

type MembershipConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Admin credentials for the ledger-side endpoint. Optional: when empty,
	// ledger-side verification is skipped with a warning.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type CheckoutConfig struct {
	ServiceURL    string        `mapstructure:"service_url" validate:"required,url"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	PayTimeout    time.Duration `mapstructure:"pay_timeout"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type RunConfig struct {
	Cleanup     types.CleanupMode `mapstructure:"cleanup"`
	ReportDir   string            `mapstructure:"report_dir"`
	EmailDomain string            `mapstructure:"email_domain"`
	Password    string            `mapstructure:"password"`

	// Device-serial convention used by the membership backend's trial logic:
	// a unique serial makes the account trial-eligible, the known serial does
	// not. Treated as an opaque test-environment convention.
	SerialPrefix     string `mapstructure:"serial_prefix"`
	KnownTrialSerial string `mapstructure:"known_trial_serial"`
}

// Action maps a named test action to its type and parameters.
type Action struct {
	Type        types.ActionType `mapstructure:"type" validate:"required"`
	PlanKey     string           `mapstructure:"subscription_type"`
	DefaultCard string           `mapstructure:"default_card"`
	CheckStatus bool             `mapstructure:"check_subscription_status"`
	CheckDates  bool             `mapstructure:"check_dates"`
}

// TestCard is a parameterized checkout card with its configured outcome.
type TestCard struct {
	Number         string              `mapstructure:"number" validate:"required"`
	Expiry         string              `mapstructure:"expiry" validate:"required"`
	CVC            string              `mapstructure:"cvc" validate:"required"`
	HolderName     string              `mapstructure:"holder_name"`
	ExpectedResult types.PaymentResult `mapstructure:"expected_result" validate:"required"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/subqa")

	v.SetEnvPrefix("SUBQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("membership.timeout", 30*time.Second)
	v.SetDefault("checkout.verify_timeout", 60*time.Second)
	v.SetDefault("checkout.pay_timeout", 2*time.Minute)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("run.cleanup", types.CleanupModeNever)
	v.SetDefault("run.report_dir", "test_results")
	v.SetDefault("run.email_domain", "qa.invalid")
	v.SetDefault("run.serial_prefix", "M2P")
	v.SetDefault("locations.default_location", "us")
	v.SetDefault("locations.default_currency", "usd")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Run.Cleanup.Validate(); err != nil {
		return err
	}
	for name, card := range c.Cards {
		if err := card.ExpectedResult.Validate(); err != nil {
			return fmt.Errorf("card %q: %w", name, err)
		}
	}
	for name, action := range c.Actions {
		if err := action.Type.Validate(); err != nil {
			return fmt.Errorf("action %q: %w", name, err)
		}
	}
	return nil
}

// Catalog builds the read-only plan lookup from the loaded plan map.
func (c Configuration) Catalog() *subscription.Catalog {
	return subscription.NewCatalog(c.Plans)
}

// GetDefaultConfig returns a default configuration for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Membership: MembershipConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Checkout: CheckoutConfig{
			ServiceURL:    "http://localhost:3001",
			VerifyTimeout: 60 * time.Second,
			PayTimeout:    2 * time.Minute,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
		Run: RunConfig{
			Cleanup:          types.CleanupModeNever,
			ReportDir:        "test_results",
			EmailDomain:      "qa.invalid",
			Password:         "Aa123456",
			SerialPrefix:     "M2P",
			KnownTrialSerial: "M2P122827570",
		},
		Locations: Locations{
			DefaultLocation: "us",
			DefaultCurrency: "usd",
		},
	}
}
