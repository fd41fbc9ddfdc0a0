package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"divecenter-backend/internal/api/grpc/interceptor"
	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/lifecycle"
	"divecenter-backend/internal/lock"
	"divecenter-backend/internal/repository/memory"
	"divecenter-backend/internal/security"
	"divecenter-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	store  *memory.Store
	client *EquipmentClient
	conn   *grpc.ClientConn
}

func startServer(t *testing.T, interceptors ...grpc.UnaryServerInterceptor) *harness {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Centers.Create(context.Background(), &domain.Center{ID: "c1", Name: "Blue Hole"}))
	require.NoError(t, store.Centers.Create(context.Background(), &domain.Center{ID: "c2", Name: "Coral Bay"}))

	machine := lifecycle.NewMachine(lifecycle.DefaultPolicy())
	equipmentSvc := service.NewEquipmentService(store.Equipment, machine, lock.NewKeyedLocker(time.Second), nil)
	centerSvc := service.NewCenterService(store.Centers, store.Snapshots, store.Notifications, nil)

	srv, _ := NewServer(NewEquipmentHandler(equipmentSvc, centerSvc), interceptors...)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{store: store, client: NewEquipmentClient(conn), conn: conn}
}

func TestEquipmentService_RentalFlowOverGRPC(t *testing.T) {
	h := startServer(t, interceptor.Logging())
	ctx := context.Background()

	created, err := h.client.CreateEquipment(ctx, &CreateEquipmentRequest{
		CenterId: "c1", Type: "regulator", Brand: "Apeks", SerialNumber: "R-77", Quantity: 1,
	})
	require.NoError(t, err)
	id := created.Equipment.Id
	assert.Equal(t, "REGULATOR", created.Equipment.Type)
	assert.Equal(t, "AVAILABLE", created.Equipment.Status)
	assert.Equal(t, "GOOD", created.Equipment.Condition)

	rented, err := h.client.StartRental(ctx, &StartRentalRequest{
		EquipmentId: id, RenterName: "Ana", From: "2025-06-01", Until: "2025-06-04", Rate: "12.50", RateTimeframe: "day",
	})
	require.NoError(t, err)
	assert.Equal(t, "RENTED", rented.Equipment.Status)
	require.NotNil(t, rented.Equipment.CurrentRental)
	assert.Equal(t, "Ana", rented.Equipment.CurrentRental.RenterName)

	var trailer metadata.MD
	_, err = h.client.StartRental(ctx, &StartRentalRequest{EquipmentId: id, RenterName: "Ben", From: "2025-06-02"}, grpc.Trailer(&trailer))
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, []string{"ALREADY_RENTED"}, trailer.Get(errorKindTrailer))

	done, err := h.client.CompleteRental(ctx, &CompleteRentalRequest{EquipmentId: id, ReturnDate: "2025-06-03T12:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "AVAILABLE", done.Equipment.Status)
	assert.Nil(t, done.Equipment.CurrentRental)

	history, err := h.client.GetRentalHistory(ctx, &EquipmentRequest{EquipmentId: id})
	require.NoError(t, err)
	require.Len(t, history.Rentals, 1)
	assert.True(t, history.Rentals[0].Returned)
	assert.Equal(t, "2025-06-03T12:00:00Z", history.Rentals[0].Until)
	assert.Equal(t, "37.50", history.Rentals[0].Charge)
}

func TestEquipmentService_UsageAndMaintenanceOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()

	created, err := h.client.CreateEquipment(ctx, &CreateEquipmentRequest{CenterId: "c1", Type: "TANK", TrackUsage: true, UsageLimit: 2})
	require.NoError(t, err)
	id := created.Equipment.Id

	used, err := h.client.RecordUsage(ctx, &RecordUsageRequest{EquipmentId: id, Count: 2})
	require.NoError(t, err)
	assert.True(t, used.Equipment.MaintenanceDue)
	assert.Equal(t, "AVAILABLE", used.Equipment.Status)

	_, err = h.client.FlagForMaintenance(ctx, &FlagForMaintenanceRequest{EquipmentId: id, Reason: "hydro"})
	require.NoError(t, err)

	queue, err := h.client.MaintenanceQueue(ctx, &CenterRequest{CenterId: "c1"})
	require.NoError(t, err)
	require.Len(t, queue.Items, 1)
	assert.Equal(t, "Blue Hole", queue.Items[0].CenterName)
	assert.Equal(t, uint32(100), queue.Items[0].UsagePercent)

	serviced, err := h.client.CompleteMaintenance(ctx, &EquipmentRequest{EquipmentId: id})
	require.NoError(t, err)
	assert.Zero(t, serviced.Equipment.UsageCount)
	assert.False(t, serviced.Equipment.MaintenanceDue)

	summary, err := h.client.GetCenterSummary(ctx, &CenterRequest{CenterId: domain.AllCenters})
	require.NoError(t, err)
	assert.Equal(t, int32(1), summary.Summary.Total)
	assert.Equal(t, int32(1), summary.Summary.ByStatus["AVAILABLE"])
	assert.Equal(t, int32(0), summary.Summary.ByStatus["RENTED"])

	_, err = h.client.RecordUsage(ctx, &RecordUsageRequest{EquipmentId: "missing", Count: 1})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestEquipmentService_RecordUsageDefaultsToOneOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()

	created, err := h.client.CreateEquipment(ctx, &CreateEquipmentRequest{CenterId: "c1", Type: "REGULATOR", TrackUsage: true, UsageLimit: 10})
	require.NoError(t, err)
	id := created.Equipment.Id

	used, err := h.client.RecordUsage(ctx, &RecordUsageRequest{EquipmentId: id})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), used.Equipment.UsageCount)

	used, err = h.client.RecordUsage(ctx, &RecordUsageRequest{EquipmentId: id, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), used.Equipment.UsageCount)
}

func TestMapRecordUsageRequestToDomain(t *testing.T) {
	assert.Equal(t, uint32(1), MapRecordUsageRequestToDomain(&RecordUsageRequest{EquipmentId: "eq-1"}))
	assert.Equal(t, uint32(5), MapRecordUsageRequestToDomain(&RecordUsageRequest{EquipmentId: "eq-1", Count: 5}))
}

func TestEquipmentService_InvalidInputOverGRPC(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()

	created, err := h.client.CreateEquipment(ctx, &CreateEquipmentRequest{CenterId: "c1", Type: "TANK"})
	require.NoError(t, err)
	id := created.Equipment.Id

	_, err = h.client.StartRental(ctx, &StartRentalRequest{EquipmentId: id, RenterName: "Ana", From: "yesterday"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthInterceptor(t *testing.T) {
	tm := security.NewTokenManager(testSecret, "")
	h := startServer(t, interceptor.Logging(), interceptor.NewAuthInterceptor(tm).Unary())

	bearer := func(centerID string, roles ...string) context.Context {
		tok, err := tm.GenerateAccessToken("staff", centerID, roles, time.Hour)
		require.NoError(t, err)
		return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
	}

	_, err := h.client.ListCenters(context.Background(), &ListCentersRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client.CreateCenter(bearer("c1"), &CreateCenterRequest{Name: "Manta Point"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	created, err := h.client.CreateCenter(bearer("", security.RoleAdmin), &CreateCenterRequest{Name: "Manta Point"})
	require.NoError(t, err)
	assert.Equal(t, "Manta Point", created.Center.Name)

	eq, err := h.client.CreateEquipment(bearer("c1"), &CreateEquipmentRequest{CenterId: "c1", Type: "BCD"})
	require.NoError(t, err)

	_, err = h.client.MarkInUse(bearer("c2"), &EquipmentRequest{EquipmentId: eq.Equipment.Id})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.client.GetCenterSummary(bearer("c1"), &CenterRequest{CenterId: domain.AllCenters})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	centers, err := h.client.ListCenters(bearer("c1"), &ListCentersRequest{})
	require.NoError(t, err)
	require.Len(t, centers.Centers, 1)
	assert.Equal(t, "c1", centers.Centers[0].Id)

	// Health stays public.
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("op: %w", domain.ErrNotFound), codes.NotFound},
		{fmt.Errorf("x: %w: %w", domain.ErrAlreadyRented, domain.ErrOverlappingRental), codes.FailedPrecondition},
		{domain.ErrInvalidTransition, codes.FailedPrecondition},
		{domain.ErrNotInExpectedState, codes.FailedPrecondition},
		{domain.ErrHasOpenRental, codes.FailedPrecondition},
		{domain.ErrInvalidDateRange, codes.InvalidArgument},
		{domain.ErrUsageNotTracked, codes.InvalidArgument},
		{domain.ErrVersionConflict, codes.Aborted},
		{domain.ErrBusy, codes.Unavailable},
		{fmt.Errorf("db: %w", domain.ErrStoreUnavailable), codes.Unavailable},
		{domain.ErrForbidden, codes.PermissionDenied},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unauthenticated, "nope"), codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(toStatus(context.Background(), tt.err)))
		})
	}
}
