package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"divecenter-backend/internal/domain"
)

// ErrInvariantViolated marks a record whose status and rentals disagree.
var ErrInvariantViolated = errors.New("lifecycle invariant violated")

type Command string

const (
	CmdStartRental         Command = "StartRental"
	CmdCompleteRental      Command = "CompleteRental"
	CmdMarkInUse           Command = "MarkInUse"
	CmdReturnToAvailable   Command = "ReturnToAvailable"
	CmdFlagForMaintenance  Command = "FlagForMaintenance"
	CmdCompleteMaintenance Command = "CompleteMaintenance"
	CmdRecordUsage         Command = "RecordUsage"
)

type transition struct {
	from []domain.EquipmentStatus
	to   domain.EquipmentStatus
}

// RecordUsage is accepted from any status and leaves it unchanged, so it has no row here.
var transitions = map[Command]transition{
	CmdStartRental:         {from: []domain.EquipmentStatus{domain.EquipmentStatusAvailable}, to: domain.EquipmentStatusRented},
	CmdMarkInUse:           {from: []domain.EquipmentStatus{domain.EquipmentStatusAvailable}, to: domain.EquipmentStatusInUse},
	CmdFlagForMaintenance:  {from: []domain.EquipmentStatus{domain.EquipmentStatusAvailable, domain.EquipmentStatusInUse}, to: domain.EquipmentStatusMaintenance},
	CmdCompleteRental:      {from: []domain.EquipmentStatus{domain.EquipmentStatusRented}, to: domain.EquipmentStatusAvailable},
	CmdCompleteMaintenance: {from: []domain.EquipmentStatus{domain.EquipmentStatusMaintenance}, to: domain.EquipmentStatusAvailable},
	CmdReturnToAvailable:   {from: []domain.EquipmentStatus{domain.EquipmentStatusInUse}, to: domain.EquipmentStatusAvailable},
}

// Allowed reports whether cmd is defined from status.
func Allowed(status domain.EquipmentStatus, cmd Command) bool {
	if cmd == CmdRecordUsage {
		return status.Valid()
	}
	t, ok := transitions[cmd]
	if !ok {
		return false
	}
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

type ResetPolicy string

const (
	// ResetZero sets the counter back to 0 on CompleteMaintenance.
	ResetZero ResetPolicy = "zero"
	// ResetRollover keeps the uses recorded past the limit, capped below the limit.
	ResetRollover ResetPolicy = "rollover"
)

type Policy struct {
	UsageReset      ResetPolicy
	ServiceInterval time.Duration
	Thresholds      []uint32
}

func DefaultPolicy() Policy {
	return Policy{UsageReset: ResetZero, Thresholds: DefaultThresholds}
}

// Machine applies lifecycle commands to copies of Equipment records.
// It never mutates its input, so a failed command leaves the caller's record untouched.
type Machine struct {
	policy   Policy
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

func NewMachine(policy Policy, opts ...Option) *Machine {
	if policy.UsageReset == "" {
		policy.UsageReset = ResetZero
	}
	if len(policy.Thresholds) == 0 {
		policy.Thresholds = DefaultThresholds
	}
	m := &Machine{
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Policy() Policy { return m.policy }

func (m *Machine) Now() time.Time { return m.now() }

// Create builds a new AVAILABLE record for a center.
func (m *Machine) Create(in domain.NewEquipment) (*domain.Equipment, error) {
	if err := m.validate.Struct(in); err != nil {
		return nil, invalidArgument(err)
	}
	if in.TrackUsage && in.UsageLimit < 1 {
		return nil, fmt.Errorf("usage limit must be >= 1: %w", domain.ErrInvalidArgument)
	}

	now := m.now()
	e := &domain.Equipment{
		ID:              m.newID(),
		CenterID:        in.CenterID,
		Type:            domain.EquipmentType(strings.ToUpper(string(in.Type))),
		Brand:           in.Brand,
		Model:           in.Model,
		SerialNumber:    in.SerialNumber,
		Status:          domain.EquipmentStatusAvailable,
		Condition:       in.Condition,
		Usage:           domain.Untracked(),
		Quantity:        in.Quantity,
		MinQuantity:     in.MinQuantity,
		NextServiceDate: in.NextServiceDate,
		CreatedOn:       now,
		UpdatedOn:       now,
	}
	if e.Condition == "" {
		e.Condition = domain.EquipmentConditionGood
	}
	if in.TrackUsage {
		e.Usage = domain.Tracked(0, in.UsageLimit)
	}
	return e, nil
}

// Edit applies descriptive attribute changes. Status, center and rentals are not editable.
func (m *Machine) Edit(e *domain.Equipment, patch domain.EquipmentPatch) (*domain.Equipment, error) {
	next := e.Clone()

	if patch.Type != nil {
		if *patch.Type == "" {
			return nil, fmt.Errorf("type must not be empty: %w", domain.ErrInvalidArgument)
		}
		next.Type = domain.EquipmentType(strings.ToUpper(string(*patch.Type)))
	}
	if patch.Brand != nil {
		next.Brand = *patch.Brand
	}
	if patch.Model != nil {
		next.Model = *patch.Model
	}
	if patch.SerialNumber != nil {
		next.SerialNumber = *patch.SerialNumber
	}
	if patch.Condition != nil {
		if !patch.Condition.Valid() {
			return nil, fmt.Errorf("condition %q: %w", *patch.Condition, domain.ErrInvalidArgument)
		}
		next.Condition = *patch.Condition
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, fmt.Errorf("quantity must be >= 0: %w", domain.ErrInvalidArgument)
		}
		next.Quantity = *patch.Quantity
	}
	if patch.MinQuantity != nil {
		if *patch.MinQuantity < 0 {
			return nil, fmt.Errorf("min quantity must be >= 0: %w", domain.ErrInvalidArgument)
		}
		next.MinQuantity = *patch.MinQuantity
	}
	if patch.NextServiceDate != nil {
		d := *patch.NextServiceDate
		next.NextServiceDate = &d
	}

	usage, err := editUsage(next.Usage, patch)
	if err != nil {
		return nil, err
	}
	next.Usage = usage
	next.UpdatedOn = m.now()
	return next, nil
}

func editUsage(u domain.UsageTracking, patch domain.EquipmentPatch) (domain.UsageTracking, error) {
	if patch.TrackUsage != nil && !*patch.TrackUsage {
		return domain.Untracked(), nil
	}

	enable := patch.TrackUsage != nil && *patch.TrackUsage && !u.IsTracked()
	if !enable && patch.UsageLimit == nil {
		return u, nil
	}
	if !enable && !u.IsTracked() {
		return u, fmt.Errorf("cannot set a limit on an untracked item: %w", domain.ErrUsageNotTracked)
	}

	count, _ := u.Count()
	limit, _ := u.Limit()
	if patch.UsageLimit != nil {
		limit = *patch.UsageLimit
	}
	if limit < 1 {
		return u, fmt.Errorf("usage limit must be >= 1: %w", domain.ErrInvalidArgument)
	}
	if enable {
		count = 0
	}
	return domain.Tracked(count, limit), nil
}

// CanDelete reports whether the record may be removed.
func CanDelete(e *domain.Equipment) error {
	if e.OpenRental() != nil || e.Status == domain.EquipmentStatusRented {
		return fmt.Errorf("equipment %s: %w", e.ID, domain.ErrHasOpenRental)
	}
	return nil
}

// StartRental opens a rental period and moves the item to RENTED.
func (m *Machine) StartRental(e *domain.Equipment, req domain.RentalRequest) (*domain.Equipment, error) {
	if err := m.validateRental(req); err != nil {
		return nil, err
	}

	switch {
	case e.Status == domain.EquipmentStatusRented:
		return nil, fmt.Errorf("start rental on %s: %w: %w", e.ID, domain.ErrAlreadyRented, domain.ErrOverlappingRental)
	case e.OpenRental() != nil:
		return nil, fmt.Errorf("start rental on %s: %w", e.ID, domain.ErrOverlappingRental)
	case !Allowed(e.Status, CmdStartRental):
		return nil, invalidTransition(e, CmdStartRental)
	}

	next := e.Clone()
	now := m.now()
	if err := openPeriod(next, m.newID(), req, now); err != nil {
		return nil, fmt.Errorf("start rental on %s: %w", e.ID, err)
	}
	next.Status = domain.EquipmentStatusRented
	next.UpdatedOn = now
	return next, nil
}

func (m *Machine) validateRental(req domain.RentalRequest) error {
	if err := m.validate.Struct(req); err != nil {
		return invalidArgument(err)
	}
	if req.From.IsZero() {
		return fmt.Errorf("rental start is required: %w", domain.ErrInvalidArgument)
	}
	if req.Rate.IsNegative() {
		return fmt.Errorf("rate must be >= 0: %w", domain.ErrInvalidArgument)
	}
	if req.Until != nil && req.Until.Before(req.From) {
		return fmt.Errorf("due date before start: %w", domain.ErrInvalidDateRange)
	}
	return nil
}

// CompleteRental closes the open period at returnDate and moves the item back to AVAILABLE.
// An empty condition keeps the current one.
func (m *Machine) CompleteRental(e *domain.Equipment, returnDate time.Time, condition domain.EquipmentCondition) (*domain.Equipment, error) {
	if !Allowed(e.Status, CmdCompleteRental) {
		return nil, fmt.Errorf("complete rental on %s in %s: %w", e.ID, e.Status, domain.ErrNotInExpectedState)
	}
	if condition != "" && !condition.Valid() {
		return nil, fmt.Errorf("condition %q: %w", condition, domain.ErrInvalidArgument)
	}
	if condition == "" {
		condition = e.Condition
	}

	next := e.Clone()
	if err := closePeriod(next, returnDate, condition); err != nil {
		return nil, fmt.Errorf("complete rental on %s: %w", e.ID, err)
	}
	next.Status = domain.EquipmentStatusAvailable
	next.Condition = condition
	next.UpdatedOn = m.now()
	return next, nil
}

func (m *Machine) MarkInUse(e *domain.Equipment) (*domain.Equipment, error) {
	return m.simple(e, CmdMarkInUse)
}

func (m *Machine) ReturnToAvailable(e *domain.Equipment) (*domain.Equipment, error) {
	return m.simple(e, CmdReturnToAvailable)
}

// FlagForMaintenance pulls the item into MAINTENANCE. The usage counter is left alone.
func (m *Machine) FlagForMaintenance(e *domain.Equipment, reason string) (*domain.Equipment, error) {
	next, err := m.simple(e, CmdFlagForMaintenance)
	if err != nil {
		return nil, err
	}
	next.MaintenanceReason = strings.TrimSpace(reason)
	return next, nil
}

// CompleteMaintenance returns the item to AVAILABLE and resets its usage per the configured policy.
func (m *Machine) CompleteMaintenance(e *domain.Equipment) (*domain.Equipment, error) {
	if !Allowed(e.Status, CmdCompleteMaintenance) {
		return nil, fmt.Errorf("complete maintenance on %s in %s: %w", e.ID, e.Status, domain.ErrNotInExpectedState)
	}

	next := e.Clone()
	now := m.now()
	if next.Usage.IsTracked() {
		count, _ := next.Usage.Count()
		limit, _ := next.Usage.Limit()
		next.Usage = domain.Tracked(m.resetCount(count, limit), limit)
	}
	next.Status = domain.EquipmentStatusAvailable
	next.MaintenanceReason = ""
	next.LastServiceDate = &now
	if m.policy.ServiceInterval > 0 {
		due := now.Add(m.policy.ServiceInterval)
		next.NextServiceDate = &due
	}
	next.UpdatedOn = now
	return next, nil
}

func (m *Machine) resetCount(count, limit uint32) uint32 {
	if m.policy.UsageReset != ResetRollover || count <= limit || limit == 0 {
		return 0
	}
	// Keep the overflow but never leave the item due straight out of service.
	return min(count-limit, limit-1)
}

// RecordUsage adds n uses to a tracked item. Status is unchanged.
func (m *Machine) RecordUsage(e *domain.Equipment, n uint32) (*domain.Equipment, []Crossing, error) {
	usage, crossings, err := AddUsage(e.Usage, n, m.policy.Thresholds)
	if err != nil {
		return nil, nil, fmt.Errorf("record usage on %s: %w", e.ID, err)
	}
	next := e.Clone()
	next.Usage = usage
	next.UpdatedOn = m.now()
	return next, crossings, nil
}

// MarkOverdueNotified stamps an open period so its overdue notice fires only once.
func (m *Machine) MarkOverdueNotified(e *domain.Equipment, periodID string) (*domain.Equipment, error) {
	next := e.Clone()
	if err := markNotified(next, periodID, m.now()); err != nil {
		return nil, fmt.Errorf("mark overdue on %s: %w", e.ID, err)
	}
	return next, nil
}

func (m *Machine) simple(e *domain.Equipment, cmd Command) (*domain.Equipment, error) {
	if !Allowed(e.Status, cmd) {
		return nil, invalidTransition(e, cmd)
	}
	next := e.Clone()
	next.Status = transitions[cmd].to
	next.UpdatedOn = m.now()
	return next, nil
}

// CheckInvariants verifies the status/rental pairing and the usage variant of a record.
func CheckInvariants(e *domain.Equipment) error {
	if !e.Status.Valid() {
		return fmt.Errorf("%s: unknown status %q: %w", e.ID, e.Status, ErrInvariantViolated)
	}
	open := e.OpenRentalCount()
	if open > 1 {
		return fmt.Errorf("%s: %d open rentals: %w", e.ID, open, ErrInvariantViolated)
	}
	if (e.Status == domain.EquipmentStatusRented) != (open == 1) {
		return fmt.Errorf("%s: status %s with %d open rentals: %w", e.ID, e.Status, open, ErrInvariantViolated)
	}
	if limit, tracked := e.Usage.Limit(); tracked && limit < 1 {
		return fmt.Errorf("%s: tracked with zero limit: %w", e.ID, ErrInvariantViolated)
	}
	return nil
}

func invalidTransition(e *domain.Equipment, cmd Command) error {
	return fmt.Errorf("%s on %s in %s: %w", cmd, e.ID, e.Status, domain.ErrInvalidTransition)
}

func invalidArgument(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s: %w", strings.Join(fields, ", "), domain.ErrInvalidArgument)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
}
