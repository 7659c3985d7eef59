package service

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vidinfra/subqa/internal/logger"
)

// ConfirmationProvider is the operator-in-the-loop port. Time advancement and
// refunds happen in the billing provider's dashboard, outside any API the
// harness can call, so the harness prompts the operator to perform them and
// waits for confirmation.
type ConfirmationProvider interface {
	// ConfirmTimeAdvance asks the operator to advance the billing clock for
	// the user by the requested number of days and returns the number of
	// days actually advanced. Zero means the operator skipped the step.
	ConfirmTimeAdvance(email string, requestedDays int) (int, error)

	// ConfirmManualCheck asks the operator to perform a described manual
	// step and reports whether they judged it successful.
	ConfirmManualCheck(description string) (bool, error)
}

// ConsoleConfirmation prompts on an interactive terminal.
type ConsoleConfirmation struct {
	in     *bufio.Reader
	out    io.Writer
	logger *logger.Logger
}

func NewConsoleConfirmation(in io.Reader, out io.Writer, log *logger.Logger) *ConsoleConfirmation {
	return &ConsoleConfirmation{
		in:     bufio.NewReader(in),
		out:    out,
		logger: log,
	}
}

func (c *ConsoleConfirmation) ConfirmTimeAdvance(email string, requestedDays int) (int, error) {
	fmt.Fprintf(c.out, "\n>>> Advance the billing clock for %s by %d day(s) in the provider dashboard.\n", email, requestedDays)
	fmt.Fprintf(c.out, ">>> Enter the number of days actually advanced (empty = %d, 0 = skipped): ", requestedDays)

	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return requestedDays, nil
	}

	days, err := strconv.Atoi(line)
	if err != nil || days < 0 {
		c.logger.Warnw("unparseable day count, treating as skipped", "input", line)
		return 0, nil
	}
	return days, nil
}

func (c *ConsoleConfirmation) ConfirmManualCheck(description string) (bool, error) {
	fmt.Fprintf(c.out, "\n>>> %s\n", description)
	fmt.Fprint(c.out, ">>> Done and successful? [y/N]: ")

	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
