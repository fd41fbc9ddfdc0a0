package grpc

import (
	"context"
	"time"

	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/service"
)

// EquipmentServer is the server API of divecenter.equipment.v1.EquipmentService.
type EquipmentServer interface {
	CreateEquipment(context.Context, *CreateEquipmentRequest) (*EquipmentResponse, error)
	EditEquipment(context.Context, *EditEquipmentRequest) (*EquipmentResponse, error)
	DeleteEquipment(context.Context, *EquipmentRequest) (*DeleteEquipmentResponse, error)
	GetEquipment(context.Context, *EquipmentRequest) (*EquipmentResponse, error)
	GetRentalHistory(context.Context, *EquipmentRequest) (*RentalHistoryResponse, error)
	StartRental(context.Context, *StartRentalRequest) (*EquipmentResponse, error)
	CompleteRental(context.Context, *CompleteRentalRequest) (*EquipmentResponse, error)
	RecordUsage(context.Context, *RecordUsageRequest) (*EquipmentResponse, error)
	FlagForMaintenance(context.Context, *FlagForMaintenanceRequest) (*EquipmentResponse, error)
	CompleteMaintenance(context.Context, *EquipmentRequest) (*EquipmentResponse, error)
	MarkInUse(context.Context, *EquipmentRequest) (*EquipmentResponse, error)
	ReturnToAvailable(context.Context, *EquipmentRequest) (*EquipmentResponse, error)
	NotifyOverdueRentals(context.Context, *NotifyOverdueRentalsRequest) (*NotifyOverdueRentalsResponse, error)
	GetCenterSummary(context.Context, *CenterRequest) (*CenterSummaryResponse, error)
	ListCenterEquipment(context.Context, *CenterRequest) (*EquipmentListResponse, error)
	MaintenanceQueue(context.Context, *CenterRequest) (*EquipmentListResponse, error)
	CreateCenter(context.Context, *CreateCenterRequest) (*CenterResponse, error)
	ListCenters(context.Context, *ListCentersRequest) (*ListCentersResponse, error)
}

type EquipmentHandler struct {
	equipmentSvc service.EquipmentService
	centerSvc    service.CenterService
	now          func() time.Time
}

func NewEquipmentHandler(equipmentSvc service.EquipmentService, centerSvc service.CenterService) *EquipmentHandler {
	return &EquipmentHandler{equipmentSvc: equipmentSvc, centerSvc: centerSvc, now: time.Now}
}

func (h *EquipmentHandler) equipmentResponse(ctx context.Context, e *domain.Equipment, err error) (*EquipmentResponse, error) {
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EquipmentResponse{Equipment: MapDomainEquipmentToWire(e)}, nil
}

func (h *EquipmentHandler) listResponse(ctx context.Context, views []domain.EquipmentView, err error) (*EquipmentListResponse, error) {
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EquipmentListResponse{Items: lo.Map(views, func(v domain.EquipmentView, _ int) *EquipmentView {
		return MapDomainViewToWire(v)
	})}, nil
}

func (h *EquipmentHandler) CreateEquipment(ctx context.Context, req *CreateEquipmentRequest) (*EquipmentResponse, error) {
	in, err := MapCreateRequestToDomain(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	e, err := h.equipmentSvc.CreateEquipment(ctx, in)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) EditEquipment(ctx context.Context, req *EditEquipmentRequest) (*EquipmentResponse, error) {
	patch, err := MapEditRequestToDomain(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	e, err := h.equipmentSvc.EditEquipment(ctx, req.EquipmentId, patch)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) DeleteEquipment(ctx context.Context, req *EquipmentRequest) (*DeleteEquipmentResponse, error) {
	if err := h.equipmentSvc.DeleteEquipment(ctx, req.EquipmentId); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &DeleteEquipmentResponse{Success: true}, nil
}

func (h *EquipmentHandler) GetEquipment(ctx context.Context, req *EquipmentRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.GetEquipment(ctx, req.EquipmentId)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) GetRentalHistory(ctx context.Context, req *EquipmentRequest) (*RentalHistoryResponse, error) {
	rentals, err := h.equipmentSvc.GetRentalHistory(ctx, req.EquipmentId)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &RentalHistoryResponse{Rentals: lo.Map(rentals, func(r domain.RentalPeriod, _ int) *RentalPeriod {
		return MapDomainRentalToWire(&r)
	})}, nil
}

func (h *EquipmentHandler) StartRental(ctx context.Context, req *StartRentalRequest) (*EquipmentResponse, error) {
	rental, err := MapStartRentalRequestToDomain(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	e, err := h.equipmentSvc.StartRental(ctx, req.EquipmentId, rental)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) CompleteRental(ctx context.Context, req *CompleteRentalRequest) (*EquipmentResponse, error) {
	returnDate, err := parseTime("return_date", req.ReturnDate)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	if returnDate.IsZero() {
		returnDate = h.now()
	}
	e, err := h.equipmentSvc.CompleteRental(ctx, req.EquipmentId, returnDate, domain.EquipmentCondition(req.Condition))
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) RecordUsage(ctx context.Context, req *RecordUsageRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.RecordUsage(ctx, req.EquipmentId, MapRecordUsageRequestToDomain(req))
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) FlagForMaintenance(ctx context.Context, req *FlagForMaintenanceRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.FlagForMaintenance(ctx, req.EquipmentId, req.Reason)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) CompleteMaintenance(ctx context.Context, req *EquipmentRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.CompleteMaintenance(ctx, req.EquipmentId)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) MarkInUse(ctx context.Context, req *EquipmentRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.MarkInUse(ctx, req.EquipmentId)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) ReturnToAvailable(ctx context.Context, req *EquipmentRequest) (*EquipmentResponse, error) {
	e, err := h.equipmentSvc.ReturnToAvailable(ctx, req.EquipmentId)
	return h.equipmentResponse(ctx, e, err)
}

func (h *EquipmentHandler) NotifyOverdueRentals(ctx context.Context, req *NotifyOverdueRentalsRequest) (*NotifyOverdueRentalsResponse, error) {
	asOf, err := parseTime("as_of", req.AsOf)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	if asOf.IsZero() {
		asOf = h.now()
	}
	n, err := h.equipmentSvc.NotifyOverdueRentals(ctx, asOf)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &NotifyOverdueRentalsResponse{Notified: int32(n)}, nil
}

func (h *EquipmentHandler) GetCenterSummary(ctx context.Context, req *CenterRequest) (*CenterSummaryResponse, error) {
	summary, err := h.centerSvc.GetCenterSummary(ctx, req.CenterId)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &CenterSummaryResponse{Summary: MapDomainSummaryToWire(summary)}, nil
}

func (h *EquipmentHandler) ListCenterEquipment(ctx context.Context, req *CenterRequest) (*EquipmentListResponse, error) {
	views, err := h.centerSvc.ListCenterEquipment(ctx, req.CenterId)
	return h.listResponse(ctx, views, err)
}

func (h *EquipmentHandler) MaintenanceQueue(ctx context.Context, req *CenterRequest) (*EquipmentListResponse, error) {
	views, err := h.centerSvc.MaintenanceQueue(ctx, req.CenterId)
	return h.listResponse(ctx, views, err)
}

func (h *EquipmentHandler) CreateCenter(ctx context.Context, req *CreateCenterRequest) (*CenterResponse, error) {
	c, err := h.centerSvc.CreateCenter(ctx, req.Name)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &CenterResponse{Center: MapDomainCenterToWire(*c)}, nil
}

func (h *EquipmentHandler) ListCenters(ctx context.Context, _ *ListCentersRequest) (*ListCentersResponse, error) {
	centers, err := h.centerSvc.ListCenters(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListCentersResponse{Centers: lo.Map(centers, func(c domain.Center, _ int) *Center {
		return MapDomainCenterToWire(c)
	})}, nil
}
