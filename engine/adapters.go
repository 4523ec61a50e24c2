package engine

import (
	"floorwatch/diagnostics"
	"floorwatch/fleet"
)

// fleetEmitter adapts the engine's EventBus to the fleet.EventEmitter interface.
type fleetEmitter struct {
	bus *EventBus
}

func (e *fleetEmitter) EmitMachineControlled(before, after fleet.Machine, action fleet.Action) {
	e.bus.Emit(Event{Type: EventMachineControlled, Payload: MachineControlledEvent{
		Action: action, Before: before, After: after,
	}})
}

func (e *fleetEmitter) EmitMachineUpdated(before, after fleet.Machine) {
	e.bus.Emit(Event{Type: EventMachineUpdated, Payload: MachineUpdatedEvent{
		Before: before, After: after, Changed: fleet.ChangedFields(before, after),
	}})
}

// diagnosticsEmitter adapts the engine's EventBus to the diagnostics.EventEmitter interface.
type diagnosticsEmitter struct {
	bus *EventBus
}

func (e *diagnosticsEmitter) EmitDiagnosticsStarted(runID string, machineID int) {
	e.bus.Emit(Event{Type: EventDiagnosticsStarted, Payload: DiagnosticsStartedEvent{
		RunID: runID, MachineID: machineID,
	}})
}

func (e *diagnosticsEmitter) EmitDiagnosticsProgress(runID string, machineID, progress int) {
	e.bus.Emit(Event{Type: EventDiagnosticsProgress, Payload: DiagnosticsProgressEvent{
		RunID: runID, MachineID: machineID, Progress: progress,
	}})
}

func (e *diagnosticsEmitter) EmitDiagnosticsCompleted(runID string, machineID int, results []diagnostics.Result) {
	e.bus.Emit(Event{Type: EventDiagnosticsCompleted, Payload: DiagnosticsCompletedEvent{
		RunID: runID, MachineID: machineID, Results: results,
	}})
}
