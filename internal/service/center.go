package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/lifecycle"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/repository"
)

const allCentersName = "All centers"

type centerService struct {
	centers       repository.CenterRepository
	snapshots     repository.SnapshotReader
	notifications repository.NotificationRepository
	thresholds    []uint32
	now           func() time.Time
}

func NewCenterService(
	centers repository.CenterRepository,
	snapshots repository.SnapshotReader,
	notifications repository.NotificationRepository,
	thresholds []uint32,
) CenterService {
	if len(thresholds) == 0 {
		thresholds = lifecycle.DefaultThresholds
	}
	return &centerService{
		centers:       centers,
		snapshots:     snapshots,
		notifications: notifications,
		thresholds:    thresholds,
		now:           time.Now,
	}
}

// read loads one consistent snapshot for a center id or domain.AllCenters.
func (s *centerService) read(ctx context.Context, centerID string) (*repository.Snapshot, error) {
	if centerID == "" {
		return nil, fmt.Errorf("center id is required: %w", domain.ErrInvalidArgument)
	}
	if err := authorizeCenter(ctx, centerID); err != nil {
		return nil, err
	}
	scope := centerID
	if centerID == domain.AllCenters {
		scope = ""
	}
	snap, err := s.snapshots.ReadSnapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	if scope != "" && len(snap.Centers) == 0 {
		return nil, fmt.Errorf("center %s: %w", centerID, domain.ErrNotFound)
	}
	return snap, nil
}

func (s *centerService) GetCenterSummary(ctx context.Context, centerID string) (*domain.CenterSummary, error) {
	snap, err := s.read(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("GetCenterSummary: %w", err)
	}

	summary := Summarize(snap.Equipment, s.thresholds)
	summary.CenterID = centerID
	summary.CenterName = allCentersName
	if centerID != domain.AllCenters {
		summary.CenterName = snap.Centers[0].Name
	}
	summary.GeneratedAt = s.now()
	return summary, nil
}

// Summarize counts items by status and flags. Every status appears in ByStatus, zero or not.
func Summarize(items []*domain.Equipment, thresholds []uint32) *domain.CenterSummary {
	summary := &domain.CenterSummary{
		ByStatus: make(map[domain.EquipmentStatus]int, len(domain.EquipmentStatuses)),
	}
	for _, st := range domain.EquipmentStatuses {
		summary.ByStatus[st] = 0
	}
	for _, e := range items {
		summary.Total++
		summary.ByStatus[e.Status]++
		if e.MaintenanceDue() {
			summary.MaintenanceDueCount++
		}
		if e.LowStock() {
			summary.LowStockCount++
		}
		if lifecycle.WarningLevel(e.Usage, thresholds) {
			summary.UsageWarningCount++
		}
	}
	return summary
}

func (s *centerService) ListCenterEquipment(ctx context.Context, centerID string) ([]domain.EquipmentView, error) {
	snap, err := s.read(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("ListCenterEquipment: %w", err)
	}
	return views(snap), nil
}

func (s *centerService) MaintenanceQueue(ctx context.Context, centerID string) ([]domain.EquipmentView, error) {
	snap, err := s.read(ctx, centerID)
	if err != nil {
		return nil, fmt.Errorf("MaintenanceQueue: %w", err)
	}

	queue := lo.Filter(views(snap), func(v domain.EquipmentView, _ int) bool {
		return v.Equipment.Status == domain.EquipmentStatusMaintenance
	})
	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if a.MaintenanceDue != b.MaintenanceDue {
			return a.MaintenanceDue
		}
		if a.UsagePercent != b.UsagePercent {
			return a.UsagePercent > b.UsagePercent
		}
		return a.Equipment.ID < b.Equipment.ID
	})
	return queue, nil
}

func views(snap *repository.Snapshot) []domain.EquipmentView {
	names := lo.SliceToMap(snap.Centers, func(c domain.Center) (string, string) {
		return c.ID, c.Name
	})
	return lo.Map(snap.Equipment, func(e *domain.Equipment, _ int) domain.EquipmentView {
		return domain.EquipmentView{
			Equipment:      e,
			CenterName:     names[e.CenterID],
			MaintenanceDue: e.MaintenanceDue(),
			UsagePercent:   e.Usage.Percent(),
			CurrentRental:  lifecycle.CurrentRental(e),
		}
	})
}

func (s *centerService) CreateCenter(ctx context.Context, name string) (*domain.Center, error) {
	logger.EnterMethod("CreateCenter", "name", name)

	if err := authorizeAdmin(ctx); err != nil {
		logger.ExitMethodWithError("CreateCenter", err)
		return nil, fmt.Errorf("CreateCenter: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("CreateCenter: center name is required: %w", domain.ErrInvalidArgument)
	}

	c := &domain.Center{ID: uuid.NewString(), Name: name, CreatedOn: s.now()}
	if err := s.centers.Create(ctx, c); err != nil {
		logger.ExitMethodWithError("CreateCenter", err)
		return nil, fmt.Errorf("CreateCenter: %w", err)
	}

	logger.ExitMethod("CreateCenter", "center_id", c.ID)
	return c, nil
}

func (s *centerService) ListCenters(ctx context.Context) ([]domain.Center, error) {
	centers, err := s.centers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCenters: %w", err)
	}
	if a, ok := ActorFromContext(ctx); ok && !a.Admin {
		centers = lo.Filter(centers, func(c domain.Center, _ int) bool { return c.ID == a.CenterID })
	}
	return centers, nil
}

func (s *centerService) ListNotifications(ctx context.Context, centerID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if err := authorizeCenter(ctx, centerID); err != nil {
		return nil, 0, fmt.Errorf("ListNotifications: %w", err)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	notes, total, err := s.notifications.ListByCenter(ctx, centerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("ListNotifications: %w", err)
	}
	return notes, total, nil
}
