package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"divecenter-backend/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    time.Month
		expected int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29}, // leap year
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
		{2000, time.February, 29}, // divisible by 400
		{1900, time.February, 28}, // divisible by 100 but not 400
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month))
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	t.Run("Exact month", func(t *testing.T) {
		m, partial := MonthsBetween(day(2025, 1, 15), day(2025, 2, 15))
		assert.Equal(t, 1, m)
		assert.False(t, partial)
	})

	t.Run("Borrow when day has not caught up", func(t *testing.T) {
		m, partial := MonthsBetween(day(2025, 1, 20), day(2025, 3, 5))
		assert.Equal(t, 1, m)
		assert.True(t, partial)
	})

	t.Run("End of month clamps", func(t *testing.T) {
		m, partial := MonthsBetween(day(2025, 1, 31), day(2025, 2, 28))
		assert.Equal(t, 1, m)
		assert.False(t, partial)
	})

	t.Run("Across year boundary", func(t *testing.T) {
		m, partial := MonthsBetween(day(2024, 11, 10), day(2025, 2, 10))
		assert.Equal(t, 3, m)
		assert.False(t, partial)
	})
}

func TestBillableUnits(t *testing.T) {
	from := day(2025, 3, 1)

	tests := []struct {
		name      string
		until     time.Time
		timeframe domain.RateTimeframe
		expected  int64
	}{
		{"Same instant is one day", from, domain.RateTimeframeDay, 1},
		{"Four days", day(2025, 3, 5), domain.RateTimeframeDay, 4},
		{"Partial day rounds up", from.Add(25 * time.Hour), domain.RateTimeframeDay, 2},
		{"Hours", from.Add(90 * time.Minute), domain.RateTimeframeHour, 2},
		{"Eight days is two weeks", day(2025, 3, 9), domain.RateTimeframeWeek, 2},
		{"Exact week", day(2025, 3, 8), domain.RateTimeframeWeek, 1},
		{"Month and a bit", day(2025, 4, 3), domain.RateTimeframeMonth, 2},
		{"Empty timeframe defaults to day", day(2025, 3, 3), "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := BillableUnits(from, tt.until, tt.timeframe)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, units)
		})
	}

	t.Run("End before start", func(t *testing.T) {
		_, err := BillableUnits(from, from.Add(-time.Hour), domain.RateTimeframeDay)
		assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	})

	t.Run("Unknown timeframe", func(t *testing.T) {
		_, err := BillableUnits(from, from, domain.RateTimeframe("FORTNIGHT"))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestCalculateRentalCharge(t *testing.T) {
	t.Run("Daily rate", func(t *testing.T) {
		charge, err := CalculateRentalCharge(day(2025, 3, 1), day(2025, 3, 5), decimal.RequireFromString("12.50"), domain.RateTimeframeDay)
		assert.NoError(t, err)
		assert.True(t, decimal.RequireFromString("50").Equal(charge), charge.String())
	})

	t.Run("Free rental", func(t *testing.T) {
		charge, err := CalculateRentalCharge(day(2025, 3, 1), day(2025, 3, 2), decimal.Zero, domain.RateTimeframeWeek)
		assert.NoError(t, err)
		assert.True(t, charge.IsZero())
	})

	t.Run("Negative rate", func(t *testing.T) {
		_, err := CalculateRentalCharge(day(2025, 3, 1), day(2025, 3, 2), decimal.NewFromInt(-1), domain.RateTimeframeDay)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("Breakdown", func(t *testing.T) {
		b, err := CalculateChargeWithBreakdown(day(2025, 3, 1), day(2025, 3, 16), decimal.NewFromInt(40), domain.RateTimeframeWeek)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), b.Units)
		assert.Equal(t, domain.RateTimeframeWeek, b.Timeframe)
		assert.True(t, decimal.NewFromInt(120).Equal(b.Total))
	})
}
