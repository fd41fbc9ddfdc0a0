package domain

import (
	"encoding/json"
	"time"
)

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "AVAILABLE"
	EquipmentStatusInUse       EquipmentStatus = "IN_USE"
	EquipmentStatusMaintenance EquipmentStatus = "MAINTENANCE"
	EquipmentStatusRented      EquipmentStatus = "RENTED"
)

// EquipmentStatuses lists every status in display order.
var EquipmentStatuses = []EquipmentStatus{
	EquipmentStatusAvailable,
	EquipmentStatusInUse,
	EquipmentStatusMaintenance,
	EquipmentStatusRented,
}

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentStatusAvailable, EquipmentStatusInUse, EquipmentStatusMaintenance, EquipmentStatusRented:
		return true
	}
	return false
}

type EquipmentCondition string

const (
	EquipmentConditionExcellent EquipmentCondition = "EXCELLENT"
	EquipmentConditionGood      EquipmentCondition = "GOOD"
	EquipmentConditionFair      EquipmentCondition = "FAIR"
	EquipmentConditionPoor      EquipmentCondition = "POOR"
)

func (c EquipmentCondition) Valid() bool {
	switch c {
	case EquipmentConditionExcellent, EquipmentConditionGood, EquipmentConditionFair, EquipmentConditionPoor:
		return true
	}
	return false
}

type EquipmentType string

const (
	EquipmentTypeTank      EquipmentType = "TANK"
	EquipmentTypeBCD       EquipmentType = "BCD"
	EquipmentTypeRegulator EquipmentType = "REGULATOR"
	EquipmentTypeWetsuit   EquipmentType = "WETSUIT"
	EquipmentTypeComputer  EquipmentType = "COMPUTER"
	EquipmentTypeMask      EquipmentType = "MASK"
	EquipmentTypeFins      EquipmentType = "FINS"
	EquipmentTypeOther     EquipmentType = "OTHER"
)

// UsageTracking is either Tracked (count and limit present) or Untracked.
// The zero value is Untracked.
type UsageTracking struct {
	tracked bool
	count   uint32
	limit   uint32
}

func Untracked() UsageTracking { return UsageTracking{} }

func Tracked(count, limit uint32) UsageTracking {
	return UsageTracking{tracked: true, count: count, limit: limit}
}

func (u UsageTracking) IsTracked() bool { return u.tracked }

// Count returns the usage count and whether the item is tracked at all.
func (u UsageTracking) Count() (uint32, bool) { return u.count, u.tracked }

// Limit returns the usage limit and whether the item is tracked at all.
func (u UsageTracking) Limit() (uint32, bool) { return u.limit, u.tracked }

// MaintenanceDue reports count >= limit for tracked items.
func (u UsageTracking) MaintenanceDue() bool {
	return u.tracked && u.count >= u.limit
}

// Percent is the integer share of the limit consumed so far, 0 when untracked.
func (u UsageTracking) Percent() uint32 {
	if !u.tracked {
		return 0
	}
	if u.limit == 0 {
		return 100
	}
	return uint32(uint64(u.count) * 100 / uint64(u.limit))
}

type usageTrackingJSON struct {
	Tracked bool    `json:"tracked"`
	Count   *uint32 `json:"count,omitempty"`
	Limit   *uint32 `json:"limit,omitempty"`
}

func (u UsageTracking) MarshalJSON() ([]byte, error) {
	out := usageTrackingJSON{Tracked: u.tracked}
	if u.tracked {
		c, l := u.count, u.limit
		out.Count, out.Limit = &c, &l
	}
	return json.Marshal(out)
}

func (u *UsageTracking) UnmarshalJSON(b []byte) error {
	var in usageTrackingJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if !in.Tracked {
		*u = Untracked()
		return nil
	}
	var c, l uint32
	if in.Count != nil {
		c = *in.Count
	}
	if in.Limit != nil {
		l = *in.Limit
	}
	*u = Tracked(c, l)
	return nil
}

// Equipment is one physical item owned by exactly one dive center.
type Equipment struct {
	ID                string             `json:"id"`
	CenterID          string             `json:"center_id"`
	Type              EquipmentType      `json:"type"`
	Brand             string             `json:"brand"`
	Model             string             `json:"model"`
	SerialNumber      string             `json:"serial_number"`
	Status            EquipmentStatus    `json:"status"`
	Condition         EquipmentCondition `json:"condition"`
	Usage             UsageTracking      `json:"usage"`
	Quantity          int32              `json:"quantity"`
	MinQuantity       int32              `json:"min_quantity"`
	LastServiceDate   *time.Time         `json:"last_service_date,omitempty"`
	NextServiceDate   *time.Time         `json:"next_service_date,omitempty"`
	MaintenanceReason string             `json:"maintenance_reason,omitempty"`
	Rentals           []RentalPeriod     `json:"rentals,omitempty"`
	Version           int64              `json:"version"`
	CreatedOn         time.Time          `json:"created_on"`
	UpdatedOn         time.Time          `json:"updated_on"`
}

func (e *Equipment) MaintenanceDue() bool { return e.Usage.MaintenanceDue() }

func (e *Equipment) LowStock() bool { return e.Quantity <= e.MinQuantity }

// OpenRental returns the rental period that has not been returned yet, if any.
func (e *Equipment) OpenRental() *RentalPeriod {
	for i := range e.Rentals {
		if e.Rentals[i].IsOpen() {
			return &e.Rentals[i]
		}
	}
	return nil
}

func (e *Equipment) OpenRentalCount() int {
	n := 0
	for i := range e.Rentals {
		if e.Rentals[i].IsOpen() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (e *Equipment) Clone() *Equipment {
	if e == nil {
		return nil
	}
	cp := *e
	cp.LastServiceDate = cloneTime(e.LastServiceDate)
	cp.NextServiceDate = cloneTime(e.NextServiceDate)
	if e.Rentals != nil {
		cp.Rentals = make([]RentalPeriod, len(e.Rentals))
		for i := range e.Rentals {
			cp.Rentals[i] = e.Rentals[i].Clone()
		}
	}
	return &cp
}

// EquipmentPatch carries the editable attributes; nil fields stay unchanged.
type EquipmentPatch struct {
	Type            *EquipmentType
	Brand           *string
	Model           *string
	SerialNumber    *string
	Condition       *EquipmentCondition
	Quantity        *int32
	MinQuantity     *int32
	NextServiceDate *time.Time
	// TrackUsage toggles tracking; enabling starts the count at zero.
	TrackUsage *bool
	UsageLimit *uint32
}

// NewEquipment holds the attributes needed to register an item.
type NewEquipment struct {
	CenterID        string             `validate:"required"`
	Type            EquipmentType      `validate:"required"`
	Brand           string
	Model           string
	SerialNumber    string
	Condition       EquipmentCondition `validate:"omitempty,oneof=EXCELLENT GOOD FAIR POOR"`
	TrackUsage      bool
	UsageLimit      uint32
	Quantity        int32 `validate:"gte=0"`
	MinQuantity     int32 `validate:"gte=0"`
	NextServiceDate *time.Time
}

// EquipmentView is a read projection row, tagged with the owning center's name.
type EquipmentView struct {
	Equipment      *Equipment    `json:"equipment"`
	CenterName     string        `json:"center_name"`
	MaintenanceDue bool          `json:"maintenance_due"`
	UsagePercent   uint32        `json:"usage_percent"`
	CurrentRental  *RentalPeriod `json:"current_rental,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
