package fleet

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC)

// mockEmitter records emitted events for test assertions.
type mockEmitter struct {
	mu      sync.Mutex
	control []Action
	updates []Machine
}

func (e *mockEmitter) EmitMachineControlled(before, after Machine, action Action) {
	e.mu.Lock()
	e.control = append(e.control, action)
	e.mu.Unlock()
}

func (e *mockEmitter) EmitMachineUpdated(before, after Machine) {
	e.mu.Lock()
	e.updates = append(e.updates, after)
	e.mu.Unlock()
}

func newTestFleet(t *testing.T) (*Fleet, *mockEmitter) {
	t.Helper()
	em := &mockEmitter{}
	f := NewFleet(Seed(testNow), em)
	tick := testNow
	f.SetClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	return f, em
}

func TestFleetControl(t *testing.T) {
	f, em := newTestFleet(t)

	m, err := f.Control(2, ActionStart)
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	if m.Status != StatusRunning || m.Performance != 85 {
		t.Errorf("after start: status=%s perf=%v", m.Status, m.Performance)
	}

	got, _ := f.Get(2)
	if !reflect.DeepEqual(got, m) {
		t.Errorf("stored record = %+v, want %+v", got, m)
	}
	if len(em.control) != 1 || em.control[0] != ActionStart {
		t.Errorf("emitted = %v, want [start]", em.control)
	}
}

func TestFleetControlUnknownAction(t *testing.T) {
	f, em := newTestFleet(t)
	before, _ := f.Get(1)

	m, err := f.Control(1, "shutdown")
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	if !reflect.DeepEqual(m, before) {
		t.Errorf("unknown action changed record: %+v", m)
	}
	if len(em.control) != 0 {
		t.Errorf("unknown action emitted %v", em.control)
	}
}

func TestFleetControlUnknownMachine(t *testing.T) {
	f, _ := newTestFleet(t)
	_, err := f.Control(99, ActionStop)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFleetUpdateLeavesOthersUnchanged(t *testing.T) {
	f, em := newTestFleet(t)
	before := f.List()

	edited := before[3].Clone()
	edited.Location = "Packaging Area 2"
	edited.Performance = 140 // not clamped
	edited.Errors = append(edited.Errors, "Film jam")

	if _, err := f.Update(edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	after := f.List()
	for i := range after {
		if after[i].ID == edited.ID {
			if !reflect.DeepEqual(after[i], edited) {
				t.Errorf("edited record = %+v, want %+v", after[i], edited)
			}
			continue
		}
		if !reflect.DeepEqual(after[i], before[i]) {
			t.Errorf("record %d changed", after[i].ID)
		}
	}
	if len(em.updates) != 1 {
		t.Errorf("updates emitted = %d, want 1", len(em.updates))
	}
}

func TestFleetUpdateNilErrorsStoredEmpty(t *testing.T) {
	f, _ := newTestFleet(t)

	got, err := f.Update(Machine{ID: 1, Name: "CNC Machine #1", Status: StatusRunning, Performance: 85})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Errors == nil || len(got.Errors) != 0 {
		t.Errorf("returned errors = %#v, want empty slice", got.Errors)
	}
	stored, _ := f.Get(1)
	if stored.Errors == nil {
		t.Error("stored errors is nil")
	}
}

func TestFleetUpdateUnknownMachine(t *testing.T) {
	f, em := newTestFleet(t)
	if _, err := f.Update(Machine{ID: 42}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(em.updates) != 0 {
		t.Error("update for unknown machine should not emit")
	}
}

func TestFleetSnapshotsAreCopies(t *testing.T) {
	f, _ := newTestFleet(t)
	list := f.List()
	list[1].Errors[0] = "tampered"
	list[1].Name = "tampered"

	got, _ := f.Get(2)
	if got.Name == "tampered" || got.Errors[0] == "tampered" {
		t.Error("snapshot mutation leaked into the fleet")
	}
}

func TestFleetStatsFollowControl(t *testing.T) {
	f, _ := newTestFleet(t)
	f.Control(1, ActionStop)
	f.Control(4, ActionStop)
	f.Control(5, ActionStop)

	s := f.Stats()
	if s.Running != 0 || s.Idle != 5 || s.Maintenance != 1 {
		t.Errorf("counts = %+v", s.Counts)
	}
	// Only the 3D printer keeps its 92.
	if s.RoundedAverage != 15 {
		t.Errorf("RoundedAverage = %d, want 15", s.RoundedAverage)
	}
}

func TestFleetConcurrentControl(t *testing.T) {
	f, em := newTestFleet(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := ActionStart
			if i%2 == 0 {
				action = ActionStop
			}
			f.Control(1+i%6, action)
			f.List()
		}(i)
	}
	wg.Wait()

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.control) != 50 {
		t.Errorf("emitted %d control events, want 50", len(em.control))
	}
	if f.Len() != 6 {
		t.Errorf("Len = %d, want 6", f.Len())
	}
}
