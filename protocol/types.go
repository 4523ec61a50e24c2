package protocol

// Message type constants.
const (
	TypeMachineControlled = "machine.controlled"
	TypeMachineUpdated    = "machine.updated"
	TypeDiagnosticsReport = "diagnostics.report"
	TypeFleetSummary      = "fleet.summary"
)

// RoleStation is the Address.Role of a FloorWatch station.
const RoleStation = "station"

// Protocol version.
const Version = 1
