package diagnostics

// EventEmitter is the interface the diagnostics package uses to emit events.
type EventEmitter interface {
	EmitDiagnosticsStarted(runID string, machineID int)
	EmitDiagnosticsProgress(runID string, machineID, progress int)
	EmitDiagnosticsCompleted(runID string, machineID int, results []Result)
}
