package diagnostics

import (
	"context"
	"errors"
	"sync"
	"time"

	"floorwatch/fleet"

	"github.com/google/uuid"
)

// ProgressStep is how far the progress indicator advances per tick.
const ProgressStep = 10

var (
	ErrAlreadyRunning = errors.New("diagnostics already running for machine")
	ErrRunNotFound    = errors.New("diagnostics run not found")
	ErrRunActive      = errors.New("diagnostics run still in progress")
	ErrStopped        = errors.New("diagnostics runner stopped")
)

// Run is the observable state of one diagnostics session.
type Run struct {
	ID         string     `json:"id"`
	MachineID  int        `json:"machineId"`
	Progress   int        `json:"progress"`
	Done       bool       `json:"done"`
	Cancelled  bool       `json:"cancelled"`
	Results    []Result   `json:"results"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (r *Run) snapshot() Run {
	cp := *r
	if r.Results != nil {
		cp.Results = make([]Result, len(r.Results))
		copy(cp.Results, r.Results)
	}
	return cp
}

// Runner drives the timed progress indicator for diagnostics sessions.
// Results are computed up front and only revealed once progress hits 100.
type Runner struct {
	mu      sync.Mutex
	runs    map[string]*Run
	active  map[int]string // machine ID -> running run ID
	latest  map[int]string // machine ID -> most recent run ID
	step    time.Duration
	emitter EventEmitter
	stopped bool

	ctx    context.Context // cancelled by Stop
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner advancing progress every step.
func NewRunner(step time.Duration, emitter EventEmitter) *Runner {
	if step <= 0 {
		step = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		runs:    make(map[string]*Run),
		active:  make(map[int]string),
		latest:  make(map[int]string),
		step:    step,
		emitter: emitter,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins a diagnostics session for the machine snapshot.
func (r *Runner) Start(m fleet.Machine) (Run, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return Run{}, ErrStopped
	}
	if _, busy := r.active[m.ID]; busy {
		r.mu.Unlock()
		return Run{}, ErrAlreadyRunning
	}
	if prev, ok := r.latest[m.ID]; ok {
		delete(r.runs, prev)
	}
	run := &Run{
		ID:        uuid.New().String(),
		MachineID: m.ID,
		StartedAt: time.Now(),
	}
	r.runs[run.ID] = run
	r.active[m.ID] = run.ID
	r.latest[m.ID] = run.ID
	snap := run.snapshot()
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(run.ID, m.ID, Checks(m))

	if r.emitter != nil {
		r.emitter.EmitDiagnosticsStarted(run.ID, m.ID)
	}
	return snap, nil
}

func (r *Runner) loop(runID string, machineID int, results []Result) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.step)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.mu.Lock()
			if run, ok := r.runs[runID]; ok {
				run.Cancelled = true
			}
			delete(r.active, machineID)
			r.mu.Unlock()
			return
		case <-ticker.C:
			r.mu.Lock()
			run, ok := r.runs[runID]
			if !ok {
				delete(r.active, machineID)
				r.mu.Unlock()
				return
			}
			run.Progress += ProgressStep
			if run.Progress >= 100 {
				now := time.Now()
				run.Progress = 100
				run.Done = true
				run.Results = results
				run.FinishedAt = &now
				delete(r.active, machineID)
			}
			progress, done := run.Progress, run.Done
			r.mu.Unlock()

			if r.emitter != nil {
				r.emitter.EmitDiagnosticsProgress(runID, machineID, progress)
				if done {
					r.emitter.EmitDiagnosticsCompleted(runID, machineID, results)
				}
			}
			if done {
				return
			}
		}
	}
}

// Get returns the state of a run.
func (r *Runner) Get(runID string) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run.snapshot(), nil
}

// Latest returns the most recent run for a machine, if any.
func (r *Runner) Latest(machineID int) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.latest[machineID]
	if !ok {
		return Run{}, false
	}
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return run.snapshot(), true
}

// Clear forgets a finished run.
func (r *Runner) Clear(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if !run.Done && !run.Cancelled {
		return ErrRunActive
	}
	delete(r.runs, runID)
	if r.latest[run.MachineID] == runID {
		delete(r.latest, run.MachineID)
	}
	return nil
}

// Stop cancels the runner context, which ends every in-flight run, and
// waits for their goroutines to exit. Later calls to Start fail.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
