package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"divecenter-backend/internal/domain"
)

// ChargeBreakdown provides a detailed view of a computed rental charge
type ChargeBreakdown struct {
	Timeframe domain.RateTimeframe
	Units     int64
	Rate      decimal.Decimal
	Total     decimal.Decimal
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsBetween counts whole calendar months from start to end and reports
// whether a partial month remains after them.
func MonthsBetween(start, end time.Time) (months int, partial bool) {
	start, end = start.UTC(), end.UTC()
	months = (end.Year()-start.Year())*12 + int(end.Month()-start.Month())

	// Borrow a month when the end day-of-month (or time of day) has not caught up yet
	anchor := addMonthsClamped(start, months)
	if anchor.After(end) {
		months--
		anchor = addMonthsClamped(start, months)
	}
	return months, anchor.Before(end)
}

// addMonthsClamped moves t forward by n months, clamping to the last day of the target month
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m := t.Year(), t.Month()+time.Month(n)
	for m > 12 {
		m -= 12
		y++
	}
	for m < 1 {
		m += 12
		y--
	}
	day := t.Day()
	if last := DaysInMonth(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// BillableUnits returns the number of started timeframes between from and until, at least one
func BillableUnits(from, until time.Time, timeframe domain.RateTimeframe) (int64, error) {
	if until.Before(from) {
		return 0, fmt.Errorf("end must be >= start: %w", domain.ErrInvalidDateRange)
	}

	var units int64
	switch timeframe {
	case domain.RateTimeframeHour:
		units = ceilDiv(until.Sub(from), time.Hour)
	case domain.RateTimeframeWeek:
		units = ceilDiv(until.Sub(from), 7*24*time.Hour)
	case domain.RateTimeframeMonth:
		months, partial := MonthsBetween(from, until)
		units = int64(months)
		if partial {
			units++
		}
	case domain.RateTimeframeDay, "":
		// Default to day unit if not specified
		units = ceilDiv(until.Sub(from), 24*time.Hour)
	default:
		return 0, fmt.Errorf("unknown rate timeframe %q: %w", timeframe, domain.ErrInvalidArgument)
	}

	if units < 1 {
		units = 1
	}
	return units, nil
}

func ceilDiv(d, unit time.Duration) int64 {
	n := int64(d / unit)
	if d%unit > 0 {
		n++
	}
	return n
}

// CalculateRentalCharge returns rate multiplied by the billable units of the period
func CalculateRentalCharge(from, until time.Time, rate decimal.Decimal, timeframe domain.RateTimeframe) (decimal.Decimal, error) {
	b, err := CalculateChargeWithBreakdown(from, until, rate, timeframe)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Total, nil
}

// CalculateChargeWithBreakdown provides detailed breakdown of a rental charge
func CalculateChargeWithBreakdown(from, until time.Time, rate decimal.Decimal, timeframe domain.RateTimeframe) (ChargeBreakdown, error) {
	if rate.IsNegative() {
		return ChargeBreakdown{}, fmt.Errorf("rate must be >= 0: %w", domain.ErrInvalidArgument)
	}
	units, err := BillableUnits(from, until, timeframe)
	if err != nil {
		return ChargeBreakdown{}, err
	}
	if timeframe == "" {
		timeframe = domain.RateTimeframeDay
	}
	return ChargeBreakdown{
		Timeframe: timeframe,
		Units:     units,
		Rate:      rate,
		Total:     rate.Mul(decimal.NewFromInt(units)),
	}, nil
}
