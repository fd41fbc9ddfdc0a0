package jobs

import (
	"context"
	"time"

	"divecenter-backend/internal/logger"
)

const overdueJobTimeout = 5 * time.Minute

// NotifyOverdueRentals reports every open rental past its due date once.
// Items already reported are skipped by the service.
func (jr *JobRunner) NotifyOverdueRentals() {
	jr.runWithRecovery("NotifyOverdueRentals", func() {
		ctx, cancel := context.WithTimeout(context.Background(), overdueJobTimeout)
		defer cancel()

		asOf := jr.now()
		n, err := jr.services.Equipment.NotifyOverdueRentals(ctx, asOf)
		if err != nil {
			// Partial failures still report the rentals that went out.
			logger.Error("Failed to notify some overdue rentals", "error", err, "notified", n)
			return
		}
		logger.Info("Overdue rentals notified", "count", n, "as_of", asOf)
	})
}
