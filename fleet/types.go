package fleet

import "errors"

// ErrNotFound is returned when no machine has the requested ID.
var ErrNotFound = errors.New("machine not found")

// Status is the reported state of a machine.
type Status string

// Machine statuses
const (
	StatusRunning     Status = "running"
	StatusIdle        Status = "idle"
	StatusMaintenance Status = "maintenance"
	StatusError       Status = "error"
)

// AllStatuses lists the statuses in display order.
var AllStatuses = []Status{StatusRunning, StatusIdle, StatusMaintenance, StatusError}

// NeedsAttention is true for statuses counted under "Maintenance" on the overview.
func (s Status) NeedsAttention() bool {
	return s == StatusMaintenance || s == StatusError
}

// Action is an operator control command.
type Action string

// Control actions
const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// Known reports whether a is one of the recognized control actions.
// Unknown actions are accepted everywhere and treated as no-ops.
func (a Action) Known() bool {
	return a == ActionStart || a == ActionStop || a == ActionRestart
}

// Machine is the latest known state of one monitored device.
type Machine struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Location        string   `json:"location"`
	Status          Status   `json:"status"`
	Performance     float64  `json:"performance"`
	Temperature     float64  `json:"temperature"`
	Uptime          float64  `json:"uptime"`
	Errors          []string `json:"errors"`
	LastMaintenance string   `json:"lastMaintenance"`
	LastUpdate      string   `json:"lastUpdate"`
}

// Clone returns a deep copy so the errors slice is never shared.
func (m Machine) Clone() Machine {
	if m.Errors != nil {
		errs := make([]string, len(m.Errors))
		copy(errs, m.Errors)
		m.Errors = errs
	}
	return m
}

// Healthy is true when the machine reports no errors.
func (m Machine) Healthy() bool {
	return len(m.Errors) == 0
}
