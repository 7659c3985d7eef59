package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DateSuite struct {
	suite.Suite
}

func TestDate(t *testing.T) {
	suite.Run(t, new(DateSuite))
}

func (s *DateSuite) TestParseAPITime() {
	parsed, err := ParseAPITime("2025-01-15T10:30:00.000Z")
	s.NoError(err)
	s.Equal(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC), parsed)
}

func (s *DateSuite) TestParseAPITimeRFC3339Fallback() {
	parsed, err := ParseAPITime("2025-01-15T10:30:00Z")
	s.NoError(err)
	s.Equal(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC), parsed)
}

func (s *DateSuite) TestParseAPITimeInvalid() {
	_, err := ParseAPITime("15/01/2025")
	s.Error(err)
}

func (s *DateSuite) TestFormatRoundTrip() {
	t := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	parsed, err := ParseAPITime(FormatAPITime(t))
	s.NoError(err)
	s.True(parsed.Equal(t))
}

func (s *DateSuite) TestSimulatedNow() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Equal(start, SimulatedNow(start, 0))
	s.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), SimulatedNow(start, 45))
}

func (s *DateSuite) TestAddCalendarMonths() {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "one year from january 31 stays january 31",
			start:    time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
			months:   12,
			expected: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "january 31 plus one month clamps to leap february",
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "january 31 plus one month clamps to non-leap february",
			start:    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "march 31 plus one month clamps to april 30",
			start:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			months:   1,
			expected: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "mid-month day is untouched",
			start:    time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2025, 9, 15, 8, 30, 0, 0, time.UTC),
		},
		{
			name:     "year rollover",
			start:    time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
			months:   3,
			expected: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "leap day plus a year clamps to february 28",
			start:    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			months:   12,
			expected: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.expected, AddCalendarMonths(tt.start, tt.months))
		})
	}
}

func (s *DateSuite) TestWithinTolerance() {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.True(WithinTolerance(base, base.Add(30*time.Second), time.Minute))
	s.True(WithinTolerance(base.Add(30*time.Second), base, time.Minute))
	s.True(WithinTolerance(base, base.Add(time.Minute), time.Minute))
	s.False(WithinTolerance(base, base.Add(61*time.Second), time.Minute))
}
