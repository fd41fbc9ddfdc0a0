package jobs

import (
	"context"
	"time"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
)

const summaryJobTimeout = time.Minute

// LogCenterSummaries writes one summary line per center plus the all-centers total.
func (jr *JobRunner) LogCenterSummaries() {
	jr.runWithRecovery("LogCenterSummaries", func() {
		ctx, cancel := context.WithTimeout(context.Background(), summaryJobTimeout)
		defer cancel()

		centers, err := jr.services.Center.ListCenters(ctx)
		if err != nil {
			logger.Error("Failed to list centers", "error", err)
			return
		}

		ids := make([]string, 0, len(centers)+1)
		for _, c := range centers {
			ids = append(ids, c.ID)
		}
		ids = append(ids, domain.AllCenters)

		for _, id := range ids {
			s, err := jr.services.Center.GetCenterSummary(ctx, id)
			if err != nil {
				logger.Error("Failed to summarize center", "center_id", id, "error", err)
				continue
			}
			logger.WithCenter(id).Info("Center summary",
				"center_name", s.CenterName,
				"total", s.Total,
				"available", s.ByStatus[domain.EquipmentStatusAvailable],
				"in_use", s.ByStatus[domain.EquipmentStatusInUse],
				"maintenance", s.ByStatus[domain.EquipmentStatusMaintenance],
				"rented", s.ByStatus[domain.EquipmentStatusRented],
				"maintenance_due", s.MaintenanceDueCount,
				"low_stock", s.LowStockCount,
				"usage_warning", s.UsageWarningCount,
			)
		}
	})
}
