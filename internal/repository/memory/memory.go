// Package memory is an in-process store with the same contract as the Postgres one.
// Every read and write copies records so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/repository"
)

type data struct {
	mu            sync.RWMutex
	equipment     map[string]*domain.Equipment
	retired       map[string]*domain.Equipment
	centers       map[string]domain.Center
	notifications []domain.Notification
	nextNoteID    int64
}

type Store struct {
	data          *data
	Equipment     repository.EquipmentRepository
	Centers       repository.CenterRepository
	Notifications repository.NotificationRepository
	Snapshots     repository.SnapshotReader
}

func NewStore() *Store {
	d := &data{
		equipment: make(map[string]*domain.Equipment),
		retired:   make(map[string]*domain.Equipment),
		centers:   make(map[string]domain.Center),
	}
	eq := &equipmentRepository{d: d}
	return &Store{
		data:          d,
		Equipment:     eq,
		Centers:       &centerRepository{d: d},
		Notifications: &notificationRepository{d: d},
		Snapshots:     eq,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

type equipmentRepository struct {
	d *data
}

func (r *equipmentRepository) Create(_ context.Context, e *domain.Equipment) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.equipment[e.ID]; ok {
		return fmt.Errorf("equipment %s already exists: %w", e.ID, domain.ErrInvalidArgument)
	}
	if _, ok := r.d.centers[e.CenterID]; !ok {
		return fmt.Errorf("center %s: %w", e.CenterID, domain.ErrNotFound)
	}
	e.Version = 1
	r.d.equipment[e.ID] = e.Clone()
	return nil
}

func (r *equipmentRepository) GetByID(_ context.Context, id string) (*domain.Equipment, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	e, ok := r.d.equipment[id]
	if !ok {
		return nil, fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	return e.Clone(), nil
}

func (r *equipmentRepository) ListByCenter(_ context.Context, centerID string) ([]*domain.Equipment, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.d.list(centerID), nil
}

func (r *equipmentRepository) ListAll(_ context.Context) ([]*domain.Equipment, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.d.list(""), nil
}

// list must be called with the lock held.
func (d *data) list(centerID string) []*domain.Equipment {
	out := make([]*domain.Equipment, 0, len(d.equipment))
	for _, e := range d.equipment {
		if centerID == "" || e.CenterID == centerID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CenterID != out[j].CenterID {
			return out[i].CenterID < out[j].CenterID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *equipmentRepository) Save(_ context.Context, e *domain.Equipment, expectedVersion int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	current, ok := r.d.equipment[e.ID]
	if !ok {
		return fmt.Errorf("equipment %s: %w", e.ID, domain.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("equipment %s at version %d, expected %d: %w", e.ID, current.Version, expectedVersion, domain.ErrVersionConflict)
	}
	if e.OpenRentalCount() > 1 {
		return fmt.Errorf("equipment %s: %w", e.ID, domain.ErrOverlappingRental)
	}

	next := e.Clone()
	next.CenterID = current.CenterID
	next.Rentals = mergeRentals(current.Rentals, next.Rentals)
	next.Version = expectedVersion + 1
	r.d.equipment[e.ID] = next
	e.Version = next.Version
	return nil
}

// mergeRentals keeps stored closed periods as they are and takes everything else from the update.
func mergeRentals(stored, updated []domain.RentalPeriod) []domain.RentalPeriod {
	closed := make(map[string]domain.RentalPeriod)
	for _, p := range stored {
		if p.Returned {
			closed[p.ID] = p
		}
	}
	out := make([]domain.RentalPeriod, 0, len(updated))
	for _, p := range updated {
		if c, ok := closed[p.ID]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *equipmentRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	e, ok := r.d.equipment[id]
	if !ok {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrNotFound)
	}
	if e.OpenRental() != nil || e.Status == domain.EquipmentStatusRented {
		return fmt.Errorf("equipment %s: %w", id, domain.ErrHasOpenRental)
	}
	delete(r.d.equipment, id)
	r.d.retired[id] = e
	return nil
}

func (r *equipmentRepository) ListOverdueRentals(_ context.Context, asOf time.Time) ([]domain.OverdueRental, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var out []domain.OverdueRental
	for _, e := range r.d.equipment {
		for _, p := range e.Rentals {
			if !p.IsOverdue(asOf) || p.OverdueNotifiedOn != nil {
				continue
			}
			out = append(out, domain.OverdueRental{
				EquipmentID: e.ID,
				CenterID:    e.CenterID,
				RentalID:    p.ID,
				RenterName:  p.RenterName,
				RenterEmail: p.RenterEmail,
				Until:       *p.Until,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Until.Equal(out[j].Until) {
			return out[i].Until.Before(out[j].Until)
		}
		return out[i].RentalID < out[j].RentalID
	})
	return out, nil
}

func (r *equipmentRepository) ReadSnapshot(_ context.Context, centerID string) (*repository.Snapshot, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	snap := &repository.Snapshot{}
	if centerID != "" {
		c, ok := r.d.centers[centerID]
		if !ok {
			return nil, fmt.Errorf("center %s: %w", centerID, domain.ErrNotFound)
		}
		snap.Centers = []domain.Center{c}
	} else {
		snap.Centers = r.d.sortedCenters()
	}
	snap.Equipment = r.d.list(centerID)
	return snap, nil
}

type centerRepository struct {
	d *data
}

func (r *centerRepository) Create(_ context.Context, c *domain.Center) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.centers[c.ID]; ok {
		return fmt.Errorf("center %s already exists: %w", c.ID, domain.ErrInvalidArgument)
	}
	r.d.centers[c.ID] = *c
	return nil
}

func (r *centerRepository) GetByID(_ context.Context, id string) (*domain.Center, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	c, ok := r.d.centers[id]
	if !ok {
		return nil, fmt.Errorf("center %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (r *centerRepository) List(_ context.Context) ([]domain.Center, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.d.sortedCenters(), nil
}

func (d *data) sortedCenters() []domain.Center {
	out := make([]domain.Center, 0, len(d.centers))
	for _, c := range d.centers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type notificationRepository struct {
	d *data
}

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.nextNoteID++
	n.ID = r.d.nextNoteID
	r.d.notifications = append(r.d.notifications, *n)
	return nil
}

func (r *notificationRepository) ListByCenter(_ context.Context, centerID string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var matched []domain.Notification
	// Newest first
	for i := len(r.d.notifications) - 1; i >= 0; i-- {
		if r.d.notifications[i].CenterID == centerID {
			matched = append(matched, r.d.notifications[i])
		}
	}
	total := int32(len(matched))
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}
