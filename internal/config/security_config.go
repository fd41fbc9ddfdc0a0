package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityStaff                       // Staff token required, scoped to the staff member's center
	SecurityAdmin                       // Staff token with the admin role required
)

const equipmentService = "/divecenter.equipment.v1.EquipmentService/"

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// Lifecycle commands
	equipmentService + "StartRental":         SecurityStaff,
	equipmentService + "CompleteRental":      SecurityStaff,
	equipmentService + "RecordUsage":         SecurityStaff,
	equipmentService + "FlagForMaintenance":  SecurityStaff,
	equipmentService + "CompleteMaintenance": SecurityStaff,
	equipmentService + "MarkInUse":           SecurityStaff,
	equipmentService + "ReturnToAvailable":   SecurityStaff,

	// Inventory management
	equipmentService + "CreateEquipment": SecurityStaff,
	equipmentService + "EditEquipment":   SecurityStaff,
	equipmentService + "DeleteEquipment": SecurityStaff,

	// Reads
	equipmentService + "GetEquipment":        SecurityStaff,
	equipmentService + "GetRentalHistory":    SecurityStaff,
	equipmentService + "GetCenterSummary":    SecurityStaff,
	equipmentService + "ListCenterEquipment": SecurityStaff,
	equipmentService + "MaintenanceQueue":    SecurityStaff,
	equipmentService + "ListCenters":         SecurityStaff,

	// Center administration
	equipmentService + "CreateCenter":         SecurityAdmin,
	equipmentService + "NotifyOverdueRentals": SecurityAdmin,
}

// GetSecurityLevel returns the level for a method. Unknown methods require a staff token.
func GetSecurityLevel(method string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[method]; ok {
		return level
	}
	return SecurityStaff
}
