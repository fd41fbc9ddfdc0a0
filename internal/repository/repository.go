package repository

import (
	"context"
	"time"

	"divecenter-backend/internal/domain"
)

// EquipmentRepository stores Equipment records together with their rental periods.
// Save and Create write the record and its rentals in one transaction.
type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	ListByCenter(ctx context.Context, centerID string) ([]*domain.Equipment, error)
	ListAll(ctx context.Context) ([]*domain.Equipment, error)
	// Save writes e if the stored version still equals expectedVersion and bumps e.Version.
	Save(ctx context.Context, e *domain.Equipment, expectedVersion int64) error
	// Delete removes the record unless it has an open rental period.
	Delete(ctx context.Context, id string) error
	ListOverdueRentals(ctx context.Context, asOf time.Time) ([]domain.OverdueRental, error)
}

type CenterRepository interface {
	Create(ctx context.Context, c *domain.Center) error
	GetByID(ctx context.Context, id string) (*domain.Center, error)
	List(ctx context.Context) ([]domain.Center, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByCenter(ctx context.Context, centerID string, limit, offset int32) ([]domain.Notification, int32, error)
}

// Snapshot is a consistent read of centers and their equipment.
type Snapshot struct {
	Centers   []domain.Center
	Equipment []*domain.Equipment
}

// SnapshotReader loads centers and equipment as of a single read pass.
// An empty centerID loads every center.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, centerID string) (*Snapshot, error)
}
