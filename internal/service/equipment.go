package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/lifecycle"
	"divecenter-backend/internal/lock"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/notify"
	"divecenter-backend/internal/repository"
)

type equipmentService struct {
	equipment repository.EquipmentRepository
	machine   *lifecycle.Machine
	locks     *lock.KeyedLocker
	publisher notify.Publisher
}

func NewEquipmentService(
	equipment repository.EquipmentRepository,
	machine *lifecycle.Machine,
	locks *lock.KeyedLocker,
	publisher notify.Publisher,
) EquipmentService {
	if publisher == nil {
		publisher = discard{}
	}
	return &equipmentService{
		equipment: equipment,
		machine:   machine,
		locks:     locks,
		publisher: publisher,
	}
}

type discard struct{}

func (discard) Publish(...domain.Event) {}

// transition computes the next state of an item and the events to emit once it is saved.
// A nil result means there is nothing to write.
type transition func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error)

// apply serializes a command on one item and performs the single versioned write.
func (s *equipmentService) apply(ctx context.Context, op, id string, fn transition) (*domain.Equipment, error) {
	logger.EnterMethod(op, "equipment_id", id)

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	defer release()

	current, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	if err := authorizeCenter(ctx, current.CenterID); err != nil {
		return nil, s.fail(op, id, err)
	}

	next, events, err := fn(current)
	if err != nil {
		return nil, s.fail(op, id, err)
	}
	if next == nil {
		logger.ExitMethod(op, "equipment_id", id, "changed", false)
		return current, nil
	}
	if err := lifecycle.CheckInvariants(next); err != nil {
		return nil, s.fail(op, id, err)
	}
	if err := s.equipment.Save(ctx, next, current.Version); err != nil {
		return nil, s.fail(op, id, err)
	}

	// Events go out only after the write has committed.
	s.publisher.Publish(events...)

	if current.Status != next.Status {
		logger.WithEquipment(next.ID, next.CenterID).Info("Equipment status changed",
			"command", op, "from", current.Status, "to", next.Status, "version", next.Version)
	}
	logger.ExitMethod(op, "equipment_id", id, "status", next.Status, "version", next.Version)
	return next, nil
}

func (s *equipmentService) fail(op, id string, err error) error {
	logger.ExitMethodWithError(op, err, "equipment_id", id, "kind", domain.ErrorKind(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *equipmentService) CreateEquipment(ctx context.Context, in domain.NewEquipment) (*domain.Equipment, error) {
	logger.EnterMethod("CreateEquipment", "center_id", in.CenterID)

	if err := authorizeCenter(ctx, in.CenterID); err != nil {
		return nil, s.fail("CreateEquipment", "", err)
	}
	e, err := s.machine.Create(in)
	if err != nil {
		return nil, s.fail("CreateEquipment", "", err)
	}
	if err := s.equipment.Create(ctx, e); err != nil {
		return nil, s.fail("CreateEquipment", e.ID, err)
	}

	logger.WithEquipment(e.ID, e.CenterID).Info("Equipment registered", "type", e.Type, "serial", e.SerialNumber)
	logger.ExitMethod("CreateEquipment", "equipment_id", e.ID)
	return e, nil
}

func (s *equipmentService) EditEquipment(ctx context.Context, id string, patch domain.EquipmentPatch) (*domain.Equipment, error) {
	return s.apply(ctx, "EditEquipment", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.Edit(e, patch)
		if err != nil {
			return nil, nil, err
		}
		crossings := lifecycle.LimitCrossings(e.Usage, next.Usage, s.machine.Policy().Thresholds)
		return next, s.thresholdEvents(next, crossings), nil
	})
}

func (s *equipmentService) DeleteEquipment(ctx context.Context, id string) error {
	const op = "DeleteEquipment"
	logger.EnterMethod(op, "equipment_id", id)

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return s.fail(op, id, err)
	}
	defer release()

	current, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return s.fail(op, id, err)
	}
	if err := authorizeCenter(ctx, current.CenterID); err != nil {
		return s.fail(op, id, err)
	}
	if err := lifecycle.CanDelete(current); err != nil {
		return s.fail(op, id, err)
	}
	if err := s.equipment.Delete(ctx, id); err != nil {
		return s.fail(op, id, err)
	}

	logger.WithEquipment(id, current.CenterID).Info("Equipment deleted")
	logger.ExitMethod(op, "equipment_id", id)
	return nil
}

func (s *equipmentService) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	e, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetEquipment: %w", err)
	}
	if err := authorizeCenter(ctx, e.CenterID); err != nil {
		return nil, fmt.Errorf("GetEquipment: %w", err)
	}
	return e, nil
}

func (s *equipmentService) GetRentalHistory(ctx context.Context, id string) ([]domain.RentalPeriod, error) {
	e, err := s.GetEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.RentalHistory(e), nil
}

func (s *equipmentService) StartRental(ctx context.Context, id string, req domain.RentalRequest) (*domain.Equipment, error) {
	return s.apply(ctx, "StartRental", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.StartRental(e, req)
		return next, nil, err
	})
}

func (s *equipmentService) CompleteRental(ctx context.Context, id string, returnDate time.Time, condition domain.EquipmentCondition) (*domain.Equipment, error) {
	return s.apply(ctx, "CompleteRental", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.CompleteRental(e, returnDate, condition)
		return next, nil, err
	})
}

func (s *equipmentService) RecordUsage(ctx context.Context, id string, n uint32) (*domain.Equipment, error) {
	return s.apply(ctx, "RecordUsage", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, crossings, err := s.machine.RecordUsage(e, n)
		if err != nil {
			return nil, nil, err
		}
		return next, s.thresholdEvents(next, crossings), nil
	})
}

func (s *equipmentService) thresholdEvents(e *domain.Equipment, crossings []lifecycle.Crossing) []domain.Event {
	now := s.machine.Now()
	return lo.Map(crossings, func(c lifecycle.Crossing, _ int) domain.Event {
		return domain.Event{
			Kind:             domain.EventMaintenanceThreshold,
			EquipmentID:      e.ID,
			CenterID:         e.CenterID,
			Type:             string(e.Type),
			Serial:           e.SerialNumber,
			OccurredAt:       now,
			ThresholdPercent: c.Percent,
			UsageCount:       c.Count,
			UsageLimit:       c.Limit,
		}
	})
}

func (s *equipmentService) FlagForMaintenance(ctx context.Context, id, reason string) (*domain.Equipment, error) {
	return s.apply(ctx, "FlagForMaintenance", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.FlagForMaintenance(e, reason)
		return next, nil, err
	})
}

func (s *equipmentService) CompleteMaintenance(ctx context.Context, id string) (*domain.Equipment, error) {
	return s.apply(ctx, "CompleteMaintenance", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.CompleteMaintenance(e)
		return next, nil, err
	})
}

func (s *equipmentService) MarkInUse(ctx context.Context, id string) (*domain.Equipment, error) {
	return s.apply(ctx, "MarkInUse", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.MarkInUse(e)
		return next, nil, err
	})
}

func (s *equipmentService) ReturnToAvailable(ctx context.Context, id string) (*domain.Equipment, error) {
	return s.apply(ctx, "ReturnToAvailable", id, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
		next, err := s.machine.ReturnToAvailable(e)
		return next, nil, err
	})
}

func (s *equipmentService) NotifyOverdueRentals(ctx context.Context, asOf time.Time) (int, error) {
	const op = "NotifyOverdueRentals"
	logger.EnterMethod(op, "as_of", asOf)

	if err := authorizeAdmin(ctx); err != nil {
		return 0, s.fail(op, "", err)
	}
	overdue, err := s.equipment.ListOverdueRentals(ctx, asOf)
	if err != nil {
		return 0, s.fail(op, "", err)
	}

	notified := 0
	var errs []error
	for _, o := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sent := false
		_, err := s.apply(ctx, op, o.EquipmentID, func(e *domain.Equipment) (*domain.Equipment, []domain.Event, error) {
			// The listing is not taken under the lock, so re-check against the locked copy.
			period, ok := lo.Find(lifecycle.OverduePeriods(e, asOf), func(p domain.RentalPeriod) bool {
				return p.ID == o.RentalID
			})
			if !ok {
				return nil, nil, nil
			}
			next, err := s.machine.MarkOverdueNotified(e, period.ID)
			if err != nil {
				return nil, nil, err
			}
			sent = true
			return next, []domain.Event{{
				Kind:        domain.EventRentalOverdue,
				EquipmentID: e.ID,
				CenterID:    e.CenterID,
				Type:        string(e.Type),
				Serial:      e.SerialNumber,
				OccurredAt:  s.machine.Now(),
				RentalID:    period.ID,
				RenterName:  period.RenterName,
				RenterEmail: period.RenterEmail,
				DueDate:     period.Until,
			}}, nil
		})
		if err != nil {
			logger.Warn("Failed to record overdue notice", "equipment_id", o.EquipmentID, "rental_id", o.RentalID, "error", err)
			errs = append(errs, err)
			continue
		}
		if sent {
			notified++
		}
	}

	logger.ExitMethod(op, "candidates", len(overdue), "notified", notified)
	return notified, errors.Join(errs...)
}
