package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"divecenter-backend/internal/config"
	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/service"
)

type MockEquipmentService struct {
	service.EquipmentService
	mock.Mock
}

func (m *MockEquipmentService) NotifyOverdueRentals(ctx context.Context, asOf time.Time) (int, error) {
	args := m.Called(ctx, asOf)
	return args.Int(0), args.Error(1)
}

type MockCenterService struct {
	service.CenterService
	mock.Mock
}

func (m *MockCenterService) ListCenters(ctx context.Context) ([]domain.Center, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Center), args.Error(1)
}

func (m *MockCenterService) GetCenterSummary(ctx context.Context, centerID string) (*domain.CenterSummary, error) {
	args := m.Called(ctx, centerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CenterSummary), args.Error(1)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "info", "text")
	t.Cleanup(func() { logger.Initialize("info", "text") })
	return &buf
}

func TestNotifyOverdueRentals(t *testing.T) {
	logs := captureLogs(t)
	now := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	eq := new(MockEquipmentService)
	eq.On("NotifyOverdueRentals", mock.Anything, now).Return(2, nil).Once()

	jr := NewJobRunner(&Services{Equipment: eq}, &config.Config{})
	jr.now = func() time.Time { return now }
	jr.NotifyOverdueRentals()

	eq.AssertExpectations(t)
	assert.Contains(t, logs.String(), "Overdue rentals notified")
	assert.Contains(t, logs.String(), "count=2")
}

func TestNotifyOverdueRentals_PartialFailure(t *testing.T) {
	logs := captureLogs(t)
	eq := new(MockEquipmentService)
	eq.On("NotifyOverdueRentals", mock.Anything, mock.Anything).Return(1, errors.New("busy")).Once()

	NewJobRunner(&Services{Equipment: eq}, &config.Config{}).NotifyOverdueRentals()

	eq.AssertExpectations(t)
	assert.Contains(t, logs.String(), "Failed to notify some overdue rentals")
	assert.Contains(t, logs.String(), "notified=1")
}

func TestLogCenterSummaries(t *testing.T) {
	logs := captureLogs(t)
	centers := new(MockCenterService)
	centers.On("ListCenters", mock.Anything).Return([]domain.Center{{ID: "c1", Name: "Blue Hole"}}, nil).Once()
	centers.On("GetCenterSummary", mock.Anything, "c1").Return(&domain.CenterSummary{
		CenterID: "c1", CenterName: "Blue Hole", Total: 3,
		ByStatus: map[domain.EquipmentStatus]int{domain.EquipmentStatusRented: 2, domain.EquipmentStatusAvailable: 1},
	}, nil).Once()
	centers.On("GetCenterSummary", mock.Anything, domain.AllCenters).Return(nil, errors.New("store down")).Once()

	NewJobRunner(&Services{Center: centers}, &config.Config{}).LogCenterSummaries()

	centers.AssertExpectations(t)
	out := logs.String()
	assert.Contains(t, out, "center_name=\"Blue Hole\"")
	assert.Contains(t, out, "rented=2")
	assert.Contains(t, out, "Failed to summarize center")
}

func TestRunWithRecovery(t *testing.T) {
	logs := captureLogs(t)
	jr := NewJobRunner(&Services{}, &config.Config{})

	require.NotPanics(t, func() {
		jr.runWithRecovery("Explodes", func() { panic("kaboom") })
	})
	assert.True(t, strings.Contains(logs.String(), "Job panicked"))
}
