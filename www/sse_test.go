package www

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"floorwatch/engine"
	"floorwatch/fleet"
)

func TestSSEClientMachineFilter(t *testing.T) {
	all := &sseClient{}
	scoped := &sseClient{machineID: 3}

	tests := []struct {
		evt        encodedEvent
		all, scope bool
	}{
		{encodedEvent{name: sseMachineUpdate}, true, true},
		{encodedEvent{name: sseDiagnosticsProgress, machineID: 3}, true, true},
		{encodedEvent{name: sseDiagnosticsProgress, machineID: 4}, true, false},
	}
	for _, tt := range tests {
		if got := all.wants(tt.evt); got != tt.all {
			t.Errorf("unscoped wants %+v = %v", tt.evt, got)
		}
		if got := scoped.wants(tt.evt); got != tt.scope {
			t.Errorf("scoped wants %+v = %v", tt.evt, got)
		}
	}
}

func TestSSERejectsBadMachine(t *testing.T) {
	hub := NewEventHub()
	rec := httptest.NewRecorder()
	hub.HandleSSE(rec, httptest.NewRequest(http.MethodGet, "/events?machine=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestToSSEScopesDiagnostics(t *testing.T) {
	evt, ok := toSSE(engine.Event{
		Type:    engine.EventDiagnosticsProgress,
		Payload: engine.DiagnosticsProgressEvent{RunID: "r", MachineID: 5, Progress: 40},
	})
	if !ok || evt.Type != sseDiagnosticsProgress || evt.MachineID != 5 {
		t.Errorf("progress = %+v ok=%v", evt, ok)
	}

	evt, ok = toSSE(engine.Event{
		Type:    engine.EventMachineControlled,
		Payload: engine.MachineControlledEvent{Action: fleet.ActionStop, After: fleet.Machine{ID: 5}},
	})
	if !ok || evt.Type != sseMachineUpdate || evt.MachineID != 0 {
		t.Errorf("control = %+v ok=%v", evt, ok)
	}

	if _, ok := toSSE(engine.Event{Type: engine.EventMessagingConnected + 100}); ok {
		t.Error("unknown event should not map")
	}
}
