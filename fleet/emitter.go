package fleet

// EventEmitter is the interface the fleet package uses to emit events.
type EventEmitter interface {
	EmitMachineControlled(before, after Machine, action Action)
	EmitMachineUpdated(before, after Machine)
}
