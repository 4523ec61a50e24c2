package protocol

import (
	"floorwatch/diagnostics"
	"floorwatch/fleet"
)

// MachineControlled reports a start/stop/restart issued from the dashboard.
type MachineControlled struct {
	MachineID int           `json:"machine_id"`
	Action    fleet.Action  `json:"action"`
	OldStatus fleet.Status  `json:"old_status"`
	NewStatus fleet.Status  `json:"new_status"`
	Machine   fleet.Machine `json:"machine"`
}

// MachineUpdated reports a settings edit. Machine is the full replacement record.
type MachineUpdated struct {
	MachineID int           `json:"machine_id"`
	Changed   []string      `json:"changed"`
	Machine   fleet.Machine `json:"machine"`
}

// DiagnosticsReport carries the results of a finished diagnostics run.
type DiagnosticsReport struct {
	RunID     string               `json:"run_id"`
	MachineID int                  `json:"machine_id"`
	Passed    int                  `json:"passed"`
	Warnings  int                  `json:"warnings"`
	Failed    int                  `json:"failed"`
	Results   []diagnostics.Result `json:"results"`
}

// FleetSummary is the periodic heartbeat with the overview aggregates.
type FleetSummary struct {
	StationID string      `json:"station_id"`
	Hostname  string      `json:"hostname"`
	Uptime    int64       `json:"uptime_s"`
	Stats     fleet.Stats `json:"stats"`
}
