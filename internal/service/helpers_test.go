package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/lifecycle"
	"divecenter-backend/internal/lock"
	"divecenter-backend/internal/repository/memory"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(events ...domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	equipment EquipmentService
	centers   CenterService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	machine := lifecycle.NewMachine(lifecycle.DefaultPolicy(), lifecycle.WithClock(func() time.Time { return testNow }))
	return &fixture{
		store:     store,
		publisher: pub,
		equipment: NewEquipmentService(store.Equipment, machine, lock.NewKeyedLocker(5*time.Second), pub),
		centers:   NewCenterService(store.Centers, store.Snapshots, store.Notifications, nil),
	}
}

func (f *fixture) center(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, f.store.Centers.Create(context.Background(), &domain.Center{ID: id, Name: name, CreatedOn: testNow}))
}

func (f *fixture) tank(t *testing.T, centerID string, limit uint32) *domain.Equipment {
	t.Helper()
	e, err := f.equipment.CreateEquipment(context.Background(), domain.NewEquipment{
		CenterID:     centerID,
		Type:         domain.EquipmentTypeTank,
		Brand:        "Faber",
		SerialNumber: "T-1",
		TrackUsage:   limit > 0,
		UsageLimit:   limit,
		Quantity:     1,
	})
	require.NoError(t, err)
	return e
}

func renter(name string, due *time.Time) domain.RentalRequest {
	return domain.RentalRequest{
		RenterName:    name,
		RenterEmail:   "diver@example.com",
		From:          testNow,
		Until:         due,
		Rate:          decimal.NewFromInt(30),
		RateTimeframe: domain.RateTimeframeDay,
	}
}
