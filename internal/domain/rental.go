package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateTimeframe string

const (
	RateTimeframeHour  RateTimeframe = "HOUR"
	RateTimeframeDay   RateTimeframe = "DAY"
	RateTimeframeWeek  RateTimeframe = "WEEK"
	RateTimeframeMonth RateTimeframe = "MONTH"
)

// RentalPeriod is one checkout of an Equipment record.
// While open, Until is the informal due date. Once returned, Until holds the return date.
type RentalPeriod struct {
	ID                string             `json:"id"`
	EquipmentID       string             `json:"equipment_id"`
	RenterName        string             `json:"renter_name"`
	RenterEmail       string             `json:"renter_email,omitempty"`
	From              time.Time          `json:"from"`
	Until             *time.Time         `json:"until,omitempty"`
	Rate              decimal.Decimal    `json:"rate"`
	RateTimeframe     RateTimeframe      `json:"rate_timeframe"`
	Returned          bool               `json:"returned"`
	ConditionOnReturn EquipmentCondition `json:"condition_on_return,omitempty"`
	Charge            decimal.Decimal    `json:"charge"`
	OverdueNotifiedOn *time.Time         `json:"overdue_notified_on,omitempty"`
	CreatedOn         time.Time          `json:"created_on"`
}

func (r *RentalPeriod) IsOpen() bool { return !r.Returned }

// IsOverdue reports an open period whose due date lies before asOf.
func (r *RentalPeriod) IsOverdue(asOf time.Time) bool {
	return r.IsOpen() && r.Until != nil && r.Until.Before(asOf)
}

func (r RentalPeriod) Clone() RentalPeriod {
	cp := r
	cp.Until = cloneTime(r.Until)
	cp.OverdueNotifiedOn = cloneTime(r.OverdueNotifiedOn)
	return cp
}

// RentalRequest is the input of a StartRental command.
type RentalRequest struct {
	RenterName    string `validate:"required"`
	RenterEmail   string `validate:"omitempty,email"`
	From          time.Time
	Until         *time.Time
	Rate          decimal.Decimal
	RateTimeframe RateTimeframe `validate:"omitempty,oneof=HOUR DAY WEEK MONTH"`
}

// OverdueRental identifies an open rental whose due date has passed.
type OverdueRental struct {
	EquipmentID string
	CenterID    string
	RentalID    string
	RenterName  string
	RenterEmail string
	Until       time.Time
}
