package service

import (
	"context"
	"time"

	"divecenter-backend/internal/domain"
)

// EquipmentService runs lifecycle commands against one item at a time.
// Every command is load, transition, save and notify under the item's lock.
type EquipmentService interface {
	CreateEquipment(ctx context.Context, in domain.NewEquipment) (*domain.Equipment, error)
	EditEquipment(ctx context.Context, id string, patch domain.EquipmentPatch) (*domain.Equipment, error)
	DeleteEquipment(ctx context.Context, id string) error
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	GetRentalHistory(ctx context.Context, id string) ([]domain.RentalPeriod, error)

	StartRental(ctx context.Context, id string, req domain.RentalRequest) (*domain.Equipment, error)
	CompleteRental(ctx context.Context, id string, returnDate time.Time, condition domain.EquipmentCondition) (*domain.Equipment, error)
	RecordUsage(ctx context.Context, id string, n uint32) (*domain.Equipment, error)
	FlagForMaintenance(ctx context.Context, id, reason string) (*domain.Equipment, error)
	CompleteMaintenance(ctx context.Context, id string) (*domain.Equipment, error)
	MarkInUse(ctx context.Context, id string) (*domain.Equipment, error)
	ReturnToAvailable(ctx context.Context, id string) (*domain.Equipment, error)

	// NotifyOverdueRentals emits one RENTAL_OVERDUE event per open rental past its due date
	// that has not been reported yet, and returns how many were reported.
	NotifyOverdueRentals(ctx context.Context, asOf time.Time) (int, error)
}

// CenterService answers read-only questions about one center or all of them.
// domain.AllCenters selects the all-centers view.
type CenterService interface {
	GetCenterSummary(ctx context.Context, centerID string) (*domain.CenterSummary, error)
	ListCenterEquipment(ctx context.Context, centerID string) ([]domain.EquipmentView, error)
	MaintenanceQueue(ctx context.Context, centerID string) ([]domain.EquipmentView, error)
	CreateCenter(ctx context.Context, name string) (*domain.Center, error)
	ListCenters(ctx context.Context) ([]domain.Center, error)
	ListNotifications(ctx context.Context, centerID string, page, pageSize int32) ([]domain.Notification, int32, error)
}
