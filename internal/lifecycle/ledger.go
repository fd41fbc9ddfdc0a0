package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/utils"
)

// CurrentRental returns a copy of the open rental period, or nil.
func CurrentRental(e *domain.Equipment) *domain.RentalPeriod {
	open := e.OpenRental()
	if open == nil {
		return nil
	}
	cp := open.Clone()
	return &cp
}

// RentalHistory returns every period of the item ordered by start, then id.
func RentalHistory(e *domain.Equipment) []domain.RentalPeriod {
	out := lo.Map(e.Rentals, func(r domain.RentalPeriod, _ int) domain.RentalPeriod { return r.Clone() })
	sortPeriods(out)
	return out
}

// OverduePeriods lists open periods due before asOf whose overdue notice has not been sent.
func OverduePeriods(e *domain.Equipment, asOf time.Time) []domain.RentalPeriod {
	return lo.FilterMap(e.Rentals, func(r domain.RentalPeriod, _ int) (domain.RentalPeriod, bool) {
		return r.Clone(), r.IsOverdue(asOf) && r.OverdueNotifiedOn == nil
	})
}

func sortPeriods(ps []domain.RentalPeriod) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].From.Equal(ps[j].From) {
			return ps[i].From.Before(ps[j].From)
		}
		return ps[i].ID < ps[j].ID
	})
}

// openPeriod appends a new open period. Callers have already checked there is none.
func openPeriod(e *domain.Equipment, id string, req domain.RentalRequest, now time.Time) error {
	if e.OpenRental() != nil {
		return domain.ErrOverlappingRental
	}
	if req.Until != nil && req.Until.Before(req.From) {
		return fmt.Errorf("due date %s before start %s: %w",
			req.Until.Format(time.RFC3339), req.From.Format(time.RFC3339), domain.ErrInvalidDateRange)
	}

	timeframe := req.RateTimeframe
	if timeframe == "" {
		timeframe = domain.RateTimeframeDay
	}
	var until *time.Time
	if req.Until != nil {
		u := *req.Until
		until = &u
	}

	e.Rentals = append(e.Rentals, domain.RentalPeriod{
		ID:            id,
		EquipmentID:   e.ID,
		RenterName:    req.RenterName,
		RenterEmail:   req.RenterEmail,
		From:          req.From,
		Until:         until,
		Rate:          req.Rate,
		RateTimeframe: timeframe,
		CreatedOn:     now,
	})
	sortPeriods(e.Rentals)
	return nil
}

// closePeriod closes the open period at returnDate and computes its charge.
func closePeriod(e *domain.Equipment, returnDate time.Time, condition domain.EquipmentCondition) error {
	open := e.OpenRental()
	if open == nil {
		return domain.ErrNotInExpectedState
	}
	if returnDate.Before(open.From) {
		return fmt.Errorf("return date %s before start %s: %w",
			returnDate.Format(time.RFC3339), open.From.Format(time.RFC3339), domain.ErrInvalidDateRange)
	}

	charge, err := utils.CalculateRentalCharge(open.From, returnDate, open.Rate, open.RateTimeframe)
	if err != nil {
		return err
	}

	rd := returnDate
	open.Until = &rd
	open.Returned = true
	open.ConditionOnReturn = condition
	open.Charge = charge
	return nil
}

// markNotified stamps the open period with the time its overdue notice fired.
func markNotified(e *domain.Equipment, periodID string, at time.Time) error {
	for i := range e.Rentals {
		r := &e.Rentals[i]
		if r.ID != periodID {
			continue
		}
		if !r.IsOpen() {
			return fmt.Errorf("rental %s is closed: %w", periodID, domain.ErrNotInExpectedState)
		}
		if r.OverdueNotifiedOn == nil {
			t := at
			r.OverdueNotifiedOn = &t
		}
		return nil
	}
	return fmt.Errorf("rental %s: %w", periodID, domain.ErrNotFound)
}
