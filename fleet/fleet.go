package fleet

import (
	"fmt"
	"sync"
	"time"
)

// Fleet owns the in-memory machine records. Readers receive copies, so
// stored records change only through Control and Update.
type Fleet struct {
	mu       sync.RWMutex
	machines []Machine
	emitter  EventEmitter
	now      func() time.Time
}

// NewFleet creates a fleet seeded with the given records.
func NewFleet(seed []Machine, emitter EventEmitter) *Fleet {
	machines := make([]Machine, len(seed))
	for i, m := range seed {
		machines[i] = m.Clone()
	}
	return &Fleet{
		machines: machines,
		emitter:  emitter,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for lastUpdate.
func (f *Fleet) SetClock(now func() time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// List returns a snapshot of all machines in seed order.
func (f *Fleet) List() []Machine {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Machine, len(f.machines))
	for i, m := range f.machines {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of machines.
func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.machines)
}

// Get returns a copy of the machine with the given ID.
func (f *Fleet) Get(id int) (Machine, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.indexOf(id)
	if i < 0 {
		return Machine{}, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	return f.machines[i].Clone(), nil
}

// Control applies a control action to one machine and stores the result.
// Unknown actions leave the record untouched and emit nothing.
func (f *Fleet) Control(id int, action Action) (Machine, error) {
	f.mu.Lock()
	i := f.indexOf(id)
	if i < 0 {
		f.mu.Unlock()
		return Machine{}, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	before := f.machines[i]
	if !action.Known() {
		f.mu.Unlock()
		return before.Clone(), nil
	}
	after := Apply(before, action, f.now())
	f.machines, _ = Replace(f.machines, after)
	f.mu.Unlock()

	// Emit outside the lock: subscribers may read the fleet.
	if f.emitter != nil {
		f.emitter.EmitMachineControlled(before.Clone(), after.Clone(), action)
	}
	return after.Clone(), nil
}

// Update swaps the stored record having m.ID for m. No field is validated;
// a missing errors list is stored as empty.
func (f *Fleet) Update(m Machine) (Machine, error) {
	updated := m.Clone()
	if updated.Errors == nil {
		updated.Errors = []string{}
	}

	f.mu.Lock()
	i := f.indexOf(updated.ID)
	if i < 0 {
		f.mu.Unlock()
		return Machine{}, fmt.Errorf("machine %d: %w", m.ID, ErrNotFound)
	}
	before := f.machines[i]
	f.machines, _ = Replace(f.machines, updated)
	f.mu.Unlock()

	if f.emitter != nil {
		f.emitter.EmitMachineUpdated(before.Clone(), updated.Clone())
	}
	return updated.Clone(), nil
}

// Stats returns the derived aggregates for the current snapshot.
func (f *Fleet) Stats() Stats {
	return ComputeStats(f.List())
}

func (f *Fleet) indexOf(id int) int {
	for i := range f.machines {
		if f.machines[i].ID == id {
			return i
		}
	}
	return -1
}
