package grpc

// Wire messages of divecenter.equipment.v1.EquipmentService.
// Timestamps are RFC 3339 strings; plain dates (2006-01-02) are accepted on input.
// Money is a decimal string.

type Equipment struct {
	Id                string        `json:"id"`
	CenterId          string        `json:"center_id"`
	Type              string        `json:"type"`
	Brand             string        `json:"brand,omitempty"`
	Model             string        `json:"model,omitempty"`
	SerialNumber      string        `json:"serial_number,omitempty"`
	Status            string        `json:"status"`
	Condition         string        `json:"condition"`
	UsageTracked      bool          `json:"usage_tracked"`
	UsageCount        uint32        `json:"usage_count,omitempty"`
	UsageLimit        uint32        `json:"usage_limit,omitempty"`
	MaintenanceDue    bool          `json:"maintenance_due"`
	Quantity          int32         `json:"quantity"`
	MinQuantity       int32         `json:"min_quantity"`
	LastServiceDate   string        `json:"last_service_date,omitempty"`
	NextServiceDate   string        `json:"next_service_date,omitempty"`
	MaintenanceReason string        `json:"maintenance_reason,omitempty"`
	CurrentRental     *RentalPeriod `json:"current_rental,omitempty"`
	Version           int64         `json:"version"`
	CreatedOn         string        `json:"created_on"`
	UpdatedOn         string        `json:"updated_on"`
}

type RentalPeriod struct {
	Id                string `json:"id"`
	RenterName        string `json:"renter_name"`
	RenterEmail       string `json:"renter_email,omitempty"`
	From              string `json:"from"`
	Until             string `json:"until,omitempty"`
	Rate              string `json:"rate"`
	RateTimeframe     string `json:"rate_timeframe"`
	Returned          bool   `json:"returned"`
	ConditionOnReturn string `json:"condition_on_return,omitempty"`
	Charge            string `json:"charge,omitempty"`
	OverdueNotifiedOn string `json:"overdue_notified_on,omitempty"`
}

type EquipmentView struct {
	Equipment    *Equipment `json:"equipment"`
	CenterName   string     `json:"center_name"`
	UsagePercent uint32     `json:"usage_percent"`
}

type Center struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	CreatedOn string `json:"created_on"`
}

type CenterSummary struct {
	CenterId            string           `json:"center_id"`
	CenterName          string           `json:"center_name"`
	Total               int32            `json:"total"`
	ByStatus            map[string]int32 `json:"by_status"`
	MaintenanceDueCount int32            `json:"maintenance_due_count"`
	LowStockCount       int32            `json:"low_stock_count"`
	UsageWarningCount   int32            `json:"usage_warning_count"`
	GeneratedAt         string           `json:"generated_at"`
}

type CreateEquipmentRequest struct {
	CenterId        string `json:"center_id"`
	Type            string `json:"type"`
	Brand           string `json:"brand"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	Condition       string `json:"condition"`
	TrackUsage      bool   `json:"track_usage"`
	UsageLimit      uint32 `json:"usage_limit"`
	Quantity        int32  `json:"quantity"`
	MinQuantity     int32  `json:"min_quantity"`
	NextServiceDate string `json:"next_service_date"`
}

// EditEquipmentRequest changes only the fields that are present.
type EditEquipmentRequest struct {
	EquipmentId     string  `json:"equipment_id"`
	Type            *string `json:"type,omitempty"`
	Brand           *string `json:"brand,omitempty"`
	Model           *string `json:"model,omitempty"`
	SerialNumber    *string `json:"serial_number,omitempty"`
	Condition       *string `json:"condition,omitempty"`
	Quantity        *int32  `json:"quantity,omitempty"`
	MinQuantity     *int32  `json:"min_quantity,omitempty"`
	NextServiceDate *string `json:"next_service_date,omitempty"`
	TrackUsage      *bool   `json:"track_usage,omitempty"`
	UsageLimit      *uint32 `json:"usage_limit,omitempty"`
}

type EquipmentRequest struct {
	EquipmentId string `json:"equipment_id"`
}

type EquipmentResponse struct {
	Equipment *Equipment `json:"equipment"`
}

type DeleteEquipmentResponse struct {
	Success bool `json:"success"`
}

type RentalHistoryResponse struct {
	Rentals []*RentalPeriod `json:"rentals"`
}

type StartRentalRequest struct {
	EquipmentId   string `json:"equipment_id"`
	RenterName    string `json:"renter_name"`
	RenterEmail   string `json:"renter_email"`
	From          string `json:"from"`
	Until         string `json:"until"`
	Rate          string `json:"rate"`
	RateTimeframe string `json:"rate_timeframe"`
}

type CompleteRentalRequest struct {
	EquipmentId string `json:"equipment_id"`
	ReturnDate  string `json:"return_date"`
	Condition   string `json:"condition"`
}

// RecordUsageRequest counts one use when Count is omitted.
type RecordUsageRequest struct {
	EquipmentId string `json:"equipment_id"`
	Count       uint32 `json:"count,omitempty"`
}

type FlagForMaintenanceRequest struct {
	EquipmentId string `json:"equipment_id"`
	Reason      string `json:"reason"`
}

type NotifyOverdueRentalsRequest struct {
	AsOf string `json:"as_of"`
}

type NotifyOverdueRentalsResponse struct {
	Notified int32 `json:"notified"`
}

type CenterRequest struct {
	CenterId string `json:"center_id"`
}

type CenterSummaryResponse struct {
	Summary *CenterSummary `json:"summary"`
}

type EquipmentListResponse struct {
	Items []*EquipmentView `json:"items"`
}

type CreateCenterRequest struct {
	Name string `json:"name"`
}

type CenterResponse struct {
	Center *Center `json:"center"`
}

type ListCentersRequest struct{}

type ListCentersResponse struct {
	Centers []*Center `json:"centers"`
}
