package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/lifecycle"
)

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// parseTime accepts RFC 3339 timestamps or plain dates. Empty input yields the zero time.
func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is not a date: %w", field, s, domain.ErrInvalidArgument)
	}
	return t, nil
}

func parseTimePtr(field, s string) (*time.Time, error) {
	t, err := parseTime(field, s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number: %w", field, s, domain.ErrInvalidArgument)
	}
	return d, nil
}

func MapDomainEquipmentToWire(e *domain.Equipment) *Equipment {
	if e == nil {
		return nil
	}
	count, tracked := e.Usage.Count()
	limit, _ := e.Usage.Limit()
	return &Equipment{
		Id:                e.ID,
		CenterId:          e.CenterID,
		Type:              string(e.Type),
		Brand:             e.Brand,
		Model:             e.Model,
		SerialNumber:      e.SerialNumber,
		Status:            string(e.Status),
		Condition:         string(e.Condition),
		UsageTracked:      tracked,
		UsageCount:        count,
		UsageLimit:        limit,
		MaintenanceDue:    e.MaintenanceDue(),
		Quantity:          e.Quantity,
		MinQuantity:       e.MinQuantity,
		LastServiceDate:   formatTimePtr(e.LastServiceDate),
		NextServiceDate:   formatTimePtr(e.NextServiceDate),
		MaintenanceReason: e.MaintenanceReason,
		CurrentRental:     MapDomainRentalToWire(lifecycle.CurrentRental(e)),
		Version:           e.Version,
		CreatedOn:         formatTime(e.CreatedOn),
		UpdatedOn:         formatTime(e.UpdatedOn),
	}
}

func MapDomainRentalToWire(r *domain.RentalPeriod) *RentalPeriod {
	if r == nil {
		return nil
	}
	out := &RentalPeriod{
		Id:                r.ID,
		RenterName:        r.RenterName,
		RenterEmail:       r.RenterEmail,
		From:              formatTime(r.From),
		Until:             formatTimePtr(r.Until),
		Rate:              r.Rate.String(),
		RateTimeframe:     string(r.RateTimeframe),
		Returned:          r.Returned,
		ConditionOnReturn: string(r.ConditionOnReturn),
		OverdueNotifiedOn: formatTimePtr(r.OverdueNotifiedOn),
	}
	if r.Returned {
		out.Charge = r.Charge.StringFixed(2)
	}
	return out
}

func MapDomainViewToWire(v domain.EquipmentView) *EquipmentView {
	return &EquipmentView{
		Equipment:    MapDomainEquipmentToWire(v.Equipment),
		CenterName:   v.CenterName,
		UsagePercent: v.UsagePercent,
	}
}

func MapDomainCenterToWire(c domain.Center) *Center {
	return &Center{Id: c.ID, Name: c.Name, CreatedOn: formatTime(c.CreatedOn)}
}

func MapDomainSummaryToWire(s *domain.CenterSummary) *CenterSummary {
	return &CenterSummary{
		CenterId:   s.CenterID,
		CenterName: s.CenterName,
		Total:      int32(s.Total),
		ByStatus: lo.MapEntries(s.ByStatus, func(k domain.EquipmentStatus, v int) (string, int32) {
			return string(k), int32(v)
		}),
		MaintenanceDueCount: int32(s.MaintenanceDueCount),
		LowStockCount:       int32(s.LowStockCount),
		UsageWarningCount:   int32(s.UsageWarningCount),
		GeneratedAt:         formatTime(s.GeneratedAt),
	}
}

func MapCreateRequestToDomain(req *CreateEquipmentRequest) (domain.NewEquipment, error) {
	next, err := parseTimePtr("next_service_date", req.NextServiceDate)
	if err != nil {
		return domain.NewEquipment{}, err
	}
	return domain.NewEquipment{
		CenterID:        req.CenterId,
		Type:            domain.EquipmentType(req.Type),
		Brand:           req.Brand,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		Condition:       domain.EquipmentCondition(strings.ToUpper(req.Condition)),
		TrackUsage:      req.TrackUsage,
		UsageLimit:      req.UsageLimit,
		Quantity:        req.Quantity,
		MinQuantity:     req.MinQuantity,
		NextServiceDate: next,
	}, nil
}

func MapRecordUsageRequestToDomain(req *RecordUsageRequest) uint32 {
	if req.Count == 0 {
		return 1
	}
	return req.Count
}

func MapEditRequestToDomain(req *EditEquipmentRequest) (domain.EquipmentPatch, error) {
	patch := domain.EquipmentPatch{
		Brand:        req.Brand,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Quantity:     req.Quantity,
		MinQuantity:  req.MinQuantity,
		TrackUsage:   req.TrackUsage,
		UsageLimit:   req.UsageLimit,
	}
	if req.Type != nil {
		patch.Type = lo.ToPtr(domain.EquipmentType(strings.ToUpper(*req.Type)))
	}
	if req.Condition != nil {
		patch.Condition = lo.ToPtr(domain.EquipmentCondition(strings.ToUpper(*req.Condition)))
	}
	if req.NextServiceDate != nil {
		next, err := parseTimePtr("next_service_date", *req.NextServiceDate)
		if err != nil {
			return domain.EquipmentPatch{}, err
		}
		patch.NextServiceDate = next
	}
	return patch, nil
}

func MapStartRentalRequestToDomain(req *StartRentalRequest) (domain.RentalRequest, error) {
	from, err := parseTime("from", req.From)
	if err != nil {
		return domain.RentalRequest{}, err
	}
	until, err := parseTimePtr("until", req.Until)
	if err != nil {
		return domain.RentalRequest{}, err
	}
	rate, err := parseDecimal("rate", req.Rate)
	if err != nil {
		return domain.RentalRequest{}, err
	}
	return domain.RentalRequest{
		RenterName:    req.RenterName,
		RenterEmail:   req.RenterEmail,
		From:          from,
		Until:         until,
		Rate:          rate,
		RateTimeframe: domain.RateTimeframe(strings.ToUpper(req.RateTimeframe)),
	}, nil
}
