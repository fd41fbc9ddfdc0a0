package domain

import "time"

type EventKind string

const (
	EventMaintenanceThreshold EventKind = "MAINTENANCE_THRESHOLD"
	EventRentalOverdue        EventKind = "RENTAL_OVERDUE"
)

// Event is what the lifecycle engine tells the notification sink about.
type Event struct {
	Kind        EventKind `json:"kind"`
	EquipmentID string    `json:"equipment_id"`
	CenterID    string    `json:"center_id"`
	Type        string    `json:"equipment_type,omitempty"`
	Serial      string    `json:"serial_number,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`

	// Maintenance threshold fields.
	ThresholdPercent uint32 `json:"threshold_percent,omitempty"`
	UsageCount       uint32 `json:"usage_count,omitempty"`
	UsageLimit       uint32 `json:"usage_limit,omitempty"`

	// Rental overdue fields.
	RentalID    string     `json:"rental_id,omitempty"`
	RenterName  string     `json:"renter_name,omitempty"`
	RenterEmail string     `json:"renter_email,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Notification is the persisted form of an Event shown on the staff dashboard.
type Notification struct {
	ID          int64             `json:"id"`
	CenterID    string            `json:"center_id"`
	EquipmentID string            `json:"equipment_id"`
	Kind        EventKind         `json:"kind"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Attributes  map[string]string `json:"attributes"`
	CreatedOn   time.Time         `json:"created_on"`
}
