package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// EquipmentClient calls EquipmentService over the JSON codec.
type EquipmentClient struct {
	cc grpc.ClientConnInterface
}

func NewEquipmentClient(cc grpc.ClientConnInterface) *EquipmentClient {
	return &EquipmentClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EquipmentClient) CreateEquipment(ctx context.Context, in *CreateEquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "CreateEquipment", in, opts...)
}

func (c *EquipmentClient) EditEquipment(ctx context.Context, in *EditEquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "EditEquipment", in, opts...)
}

func (c *EquipmentClient) DeleteEquipment(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*DeleteEquipmentResponse, error) {
	return invoke[DeleteEquipmentResponse](ctx, c.cc, "DeleteEquipment", in, opts...)
}

func (c *EquipmentClient) GetEquipment(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "GetEquipment", in, opts...)
}

func (c *EquipmentClient) GetRentalHistory(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*RentalHistoryResponse, error) {
	return invoke[RentalHistoryResponse](ctx, c.cc, "GetRentalHistory", in, opts...)
}

func (c *EquipmentClient) StartRental(ctx context.Context, in *StartRentalRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "StartRental", in, opts...)
}

func (c *EquipmentClient) CompleteRental(ctx context.Context, in *CompleteRentalRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "CompleteRental", in, opts...)
}

func (c *EquipmentClient) RecordUsage(ctx context.Context, in *RecordUsageRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "RecordUsage", in, opts...)
}

func (c *EquipmentClient) FlagForMaintenance(ctx context.Context, in *FlagForMaintenanceRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "FlagForMaintenance", in, opts...)
}

func (c *EquipmentClient) CompleteMaintenance(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "CompleteMaintenance", in, opts...)
}

func (c *EquipmentClient) MarkInUse(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "MarkInUse", in, opts...)
}

func (c *EquipmentClient) ReturnToAvailable(ctx context.Context, in *EquipmentRequest, opts ...grpc.CallOption) (*EquipmentResponse, error) {
	return invoke[EquipmentResponse](ctx, c.cc, "ReturnToAvailable", in, opts...)
}

func (c *EquipmentClient) NotifyOverdueRentals(ctx context.Context, in *NotifyOverdueRentalsRequest, opts ...grpc.CallOption) (*NotifyOverdueRentalsResponse, error) {
	return invoke[NotifyOverdueRentalsResponse](ctx, c.cc, "NotifyOverdueRentals", in, opts...)
}

func (c *EquipmentClient) GetCenterSummary(ctx context.Context, in *CenterRequest, opts ...grpc.CallOption) (*CenterSummaryResponse, error) {
	return invoke[CenterSummaryResponse](ctx, c.cc, "GetCenterSummary", in, opts...)
}

func (c *EquipmentClient) ListCenterEquipment(ctx context.Context, in *CenterRequest, opts ...grpc.CallOption) (*EquipmentListResponse, error) {
	return invoke[EquipmentListResponse](ctx, c.cc, "ListCenterEquipment", in, opts...)
}

func (c *EquipmentClient) MaintenanceQueue(ctx context.Context, in *CenterRequest, opts ...grpc.CallOption) (*EquipmentListResponse, error) {
	return invoke[EquipmentListResponse](ctx, c.cc, "MaintenanceQueue", in, opts...)
}

func (c *EquipmentClient) CreateCenter(ctx context.Context, in *CreateCenterRequest, opts ...grpc.CallOption) (*CenterResponse, error) {
	return invoke[CenterResponse](ctx, c.cc, "CreateCenter", in, opts...)
}

func (c *EquipmentClient) ListCenters(ctx context.Context, in *ListCentersRequest, opts ...grpc.CallOption) (*ListCentersResponse, error) {
	return invoke[ListCentersResponse](ctx, c.cc, "ListCenters", in, opts...)
}
