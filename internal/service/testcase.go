package service

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
)

// maxStepsPerCase bounds the action_N/param_N column scan.
const maxStepsPerCase = 10

// Step is one action invocation within a test case.
type Step struct {
	ActionName string
	Param      string
}

// TestCase is one row of the test definition file.
type TestCase struct {
	ID          string
	Name        string
	Country     string
	TrialStatus string
	UserEmail   string
	Steps       []Step
}

// TrialEligible interprets the trial_status cell. Anything outside the
// accepted set, including an empty cell, means not eligible.
func (t TestCase) TrialEligible() bool {
	status := strings.ToLower(strings.TrimSpace(t.TrialStatus))
	return lo.Contains([]string{"active", "true", "yes", "y"}, status)
}

// CaseLoader reads test definitions from CSV files. The format is one case
// per row with numbered action/param column pairs: test_id, test_name,
// country, trial_status, user_email, action_1, param_1, action_2, param_2...
type CaseLoader struct {
	logger *logger.Logger
}

func NewCaseLoader(log *logger.Logger) *CaseLoader {
	return &CaseLoader{logger: log}
}

// Load parses every test case in the file. Rows without a test_id are
// skipped with a warning rather than failing the whole file.
func (l *CaseLoader) Load(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Test definition file %s could not be opened", path).
			Mark(ierr.ErrConfiguration)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	// Rows may omit trailing empty action columns
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Test definition file %s is not valid CSV", path).
			Mark(ierr.ErrConfiguration)
	}
	if len(records) < 2 {
		return nil, ierr.NewError("empty test definition file").
			WithHintf("File %s has no test case rows", path).
			Mark(ierr.ErrConfiguration)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := header["test_id"]; !ok {
		return nil, ierr.NewError("missing test_id column").
			WithHintf("File %s must have a test_id header column", path).
			Mark(ierr.ErrConfiguration)
	}

	cell := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var cases []TestCase
	for rowNum, row := range records[1:] {
		tc := TestCase{
			ID:          cell(row, "test_id"),
			Name:        cell(row, "test_name"),
			Country:     cell(row, "country"),
			TrialStatus: cell(row, "trial_status"),
			UserEmail:   cell(row, "user_email"),
		}
		if tc.ID == "" {
			l.logger.Warnw("skipping row without test_id", "row", rowNum+2)
			continue
		}

		for i := 1; i <= maxStepsPerCase; i++ {
			action := cell(row, numbered("action_", i))
			if action == "" {
				break
			}
			tc.Steps = append(tc.Steps, Step{
				ActionName: action,
				Param:      cell(row, numbered("param_", i)),
			})
		}

		cases = append(cases, tc)
	}

	l.logger.Infow("loaded test cases", "file", path, "count", len(cases))
	return cases, nil
}

// LoadByID returns the single matching test case from the file.
func (l *CaseLoader) LoadByID(path, testID string) (TestCase, error) {
	cases, err := l.Load(path)
	if err != nil {
		return TestCase{}, err
	}
	tc, found := lo.Find(cases, func(c TestCase) bool {
		return c.ID == testID
	})
	if !found {
		return TestCase{}, ierr.NewError("test case not found").
			WithHintf("No test case with id %q in %s", testID, path).
			Mark(ierr.ErrNotFound)
	}
	return tc, nil
}

func numbered(prefix string, i int) string {
	return prefix + strconv.Itoa(i)
}
