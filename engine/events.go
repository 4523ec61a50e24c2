package engine

import (
	"time"

	"floorwatch/diagnostics"
	"floorwatch/fleet"
	"floorwatch/store"
)

// EventType identifies the kind of event emitted by the Engine.
type EventType int

const (
	// Machine events
	EventMachineControlled EventType = iota + 1
	EventMachineUpdated

	// Diagnostics events
	EventDiagnosticsStarted
	EventDiagnosticsProgress
	EventDiagnosticsCompleted

	// Notification events
	EventNotificationCreated

	// Messaging events
	EventMessagingConnected
	EventMessagingDisconnected
)

// Event is the envelope emitted by the Engine's EventBus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// MachineControlledEvent is emitted after a start, stop or restart.
type MachineControlledEvent struct {
	Action fleet.Action  `json:"action"`
	Before fleet.Machine `json:"-"`
	After  fleet.Machine `json:"machine"`
}

// MachineUpdatedEvent is emitted after a settings edit replaced a record.
type MachineUpdatedEvent struct {
	Before  fleet.Machine `json:"-"`
	After   fleet.Machine `json:"machine"`
	Changed []string      `json:"changed"`
}

// DiagnosticsStartedEvent is emitted when a run begins.
type DiagnosticsStartedEvent struct {
	RunID     string `json:"runId"`
	MachineID int    `json:"machineId"`
}

// DiagnosticsProgressEvent is emitted on every progress step.
type DiagnosticsProgressEvent struct {
	RunID     string `json:"runId"`
	MachineID int    `json:"machineId"`
	Progress  int    `json:"progress"`
}

// DiagnosticsCompletedEvent carries the revealed results.
type DiagnosticsCompletedEvent struct {
	RunID     string               `json:"runId"`
	MachineID int                  `json:"machineId"`
	Results   []diagnostics.Result `json:"results"`
}

// NotificationCreatedEvent is emitted after a notification row is inserted.
type NotificationCreatedEvent struct {
	Notification store.Notification `json:"notification"`
	Unread       int                `json:"unread"`
}

// MessagingEvent is emitted when the broker connection state changes.
type MessagingEvent struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}
