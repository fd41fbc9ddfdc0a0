package domain

import "time"

// AllCenters selects the all-centers projection in aggregator calls.
const AllCenters = "all"

type Center struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedOn time.Time `json:"created_on"`
}

// CenterSummary is computed per request from a single read pass.
type CenterSummary struct {
	CenterID            string                  `json:"center_id"`
	CenterName          string                  `json:"center_name"`
	Total               int                     `json:"total"`
	ByStatus            map[EquipmentStatus]int `json:"by_status"`
	MaintenanceDueCount int                     `json:"maintenance_due_count"`
	LowStockCount       int                     `json:"low_stock_count"`
	UsageWarningCount   int                     `json:"usage_warning_count"`
	GeneratedAt         time.Time               `json:"generated_at"`
}
