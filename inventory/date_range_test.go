package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

func Test_NewDateRange_NormalizesToUTCDays(t *testing.T) {
	// arrange
	start := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 23, 59, 0, 0, time.UTC)

	// act
	period, err := inventory.NewDateRange(start, end)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.Day(2025, 6, 1), period.Start)
	assert.Equal(t, inventory.Day(2025, 6, 3), period.End)
	assert.Equal(t, 3, period.DayCount())
	assert.Equal(t, "[2025-06-01, 2025-06-03]", period.String())
}

func Test_NewDateRange_KeepsCalendarDaysOfOtherLocations(t *testing.T) {
	// arrange
	paris := time.FixedZone("CEST", 2*60*60)
	honolulu := time.FixedZone("HST", -10*60*60)

	testCases := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{name: "local midnight east of UTC", start: time.Date(2025, 6, 1, 0, 0, 0, 0, paris), end: time.Date(2025, 6, 3, 0, 0, 0, 0, paris)},
		{name: "late evening west of UTC", start: time.Date(2025, 6, 1, 22, 0, 0, 0, honolulu), end: time.Date(2025, 6, 3, 23, 0, 0, 0, honolulu)},
		{name: "mixed locations", start: time.Date(2025, 6, 1, 1, 0, 0, 0, paris), end: time.Date(2025, 6, 3, 20, 0, 0, 0, honolulu)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			period, err := inventory.NewDateRange(tc.start, tc.end)

			// assert
			require.NoError(t, err)
			assert.Equal(t, inventory.Day(2025, 6, 1), period.Start, "Should keep the caller's start day")
			assert.Equal(t, inventory.Day(2025, 6, 3), period.End, "Should keep the caller's end day")
			assert.Equal(t, time.UTC, period.Start.Location())
		})
	}
}

func Test_NewDateRange_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{name: "start after end", start: inventory.Day(2025, 6, 5), end: inventory.Day(2025, 6, 4)},
		{name: "zero start", end: inventory.Day(2025, 6, 4)},
		{name: "zero end", start: inventory.Day(2025, 6, 4)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := inventory.NewDateRange(tc.start, tc.end)

			assert.ErrorIs(t, err, inventory.ErrValidation)
		})
	}
}

func Test_DateRange_SingleDayCountsAsOneDay(t *testing.T) {
	period := inventory.MustDateRange(inventory.Day(2025, 6, 1), inventory.Day(2025, 6, 1))

	assert.Equal(t, 1, period.DayCount())
}

func Test_DateRange_Overlaps(t *testing.T) {
	base := inventory.MustDateRange(inventory.Day(2025, 6, 2), inventory.Day(2025, 6, 4))

	tests := []struct {
		name     string
		other    inventory.DateRange
		expected bool
	}{
		{"ends on first day", inventory.MustDateRange(inventory.Day(2025, 6, 1), inventory.Day(2025, 6, 2)), true},
		{"starts on last day", inventory.MustDateRange(inventory.Day(2025, 6, 4), inventory.Day(2025, 6, 9)), true},
		{"inside", inventory.MustDateRange(inventory.Day(2025, 6, 3), inventory.Day(2025, 6, 3)), true},
		{"covering", inventory.MustDateRange(inventory.Day(2025, 5, 1), inventory.Day(2025, 7, 1)), true},
		{"day before", inventory.MustDateRange(inventory.Day(2025, 5, 30), inventory.Day(2025, 6, 1)), false},
		{"day after", inventory.MustDateRange(inventory.Day(2025, 6, 5), inventory.Day(2025, 6, 6)), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, base.Overlaps(tc.other))
			assert.Equal(t, tc.expected, tc.other.Overlaps(base))
		})
	}
}

func Test_DateRange_ShiftKeepsDayCount(t *testing.T) {
	// arrange
	period := inventory.MustDateRange(inventory.Day(2025, 6, 30), inventory.Day(2025, 7, 2))

	// act
	shifted := period.Shift(3)
	back := shifted.Shift(-3)

	// assert
	assert.Equal(t, inventory.Day(2025, 7, 3), shifted.Start)
	assert.Equal(t, inventory.Day(2025, 7, 5), shifted.End)
	assert.Equal(t, period.DayCount(), shifted.DayCount())
	assert.True(t, back.Equal(period))
}

func Test_Span_CoversAllRanges(t *testing.T) {
	// arrange
	a := inventory.MustDateRange(inventory.Day(2025, 6, 3), inventory.Day(2025, 6, 5))
	b := inventory.MustDateRange(inventory.Day(2025, 6, 1), inventory.Day(2025, 6, 2))
	c := inventory.MustDateRange(inventory.Day(2025, 6, 4), inventory.Day(2025, 6, 8))

	// act
	span := inventory.Span(a, b, c)

	// assert
	assert.Equal(t, inventory.Day(2025, 6, 1), span.Start)
	assert.Equal(t, inventory.Day(2025, 6, 8), span.End)
	assert.True(t, inventory.Span().IsZero())
}

func Test_DateRange_Contains(t *testing.T) {
	period := inventory.MustDateRange(inventory.Day(2025, 6, 1), inventory.Day(2025, 6, 3))

	assert.True(t, period.Contains(time.Date(2025, 6, 3, 23, 59, 0, 0, time.UTC)))
	assert.False(t, period.Contains(inventory.Day(2025, 6, 4)))
}
