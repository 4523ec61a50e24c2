package diagnostics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"floorwatch/fleet"
)

// mockEmitter records emitted events for test assertions.
type mockEmitter struct {
	mu        sync.Mutex
	progress  []int
	started   int
	completed int
}

func (e *mockEmitter) EmitDiagnosticsStarted(runID string, machineID int) {
	e.mu.Lock()
	e.started++
	e.mu.Unlock()
}

func (e *mockEmitter) EmitDiagnosticsProgress(runID string, machineID, progress int) {
	e.mu.Lock()
	e.progress = append(e.progress, progress)
	e.mu.Unlock()
}

func (e *mockEmitter) EmitDiagnosticsCompleted(runID string, machineID int, results []Result) {
	e.mu.Lock()
	e.completed++
	e.mu.Unlock()
}

func waitDone(t *testing.T, r *Runner, runID string, timeout time.Duration) Run {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		run, err := r.Get(runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if run.Done {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish within %v", runID, timeout)
	return Run{}
}

func TestRunnerRevealsResultsAtCompletion(t *testing.T) {
	em := &mockEmitter{}
	r := NewRunner(time.Millisecond, em)
	defer r.Stop()

	m := fleet.Machine{ID: 2, Status: fleet.StatusIdle, Performance: 92, Temperature: 38, Errors: []string{"Low filament"}}
	run, err := r.Start(m)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if run.Progress != 0 || run.Done || len(run.Results) != 0 {
		t.Errorf("fresh run = %+v", run)
	}

	done := waitDone(t, r, run.ID, 2*time.Second)
	if done.Progress != 100 {
		t.Errorf("Progress = %d, want 100", done.Progress)
	}
	if len(done.Results) != 5 {
		t.Errorf("Results = %d, want 5", len(done.Results))
	}
	if done.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	// Stop waits for the loop, so every event has been emitted.
	r.Stop()
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.started != 1 || em.completed != 1 {
		t.Errorf("started=%d completed=%d", em.started, em.completed)
	}
	want := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if len(em.progress) != len(want) {
		t.Fatalf("progress events = %v, want %v", em.progress, want)
	}
	for i := range want {
		if em.progress[i] != want[i] {
			t.Errorf("progress[%d] = %d, want %d", i, em.progress[i], want[i])
		}
	}
}

func TestRunnerRejectsConcurrentRunForSameMachine(t *testing.T) {
	r := NewRunner(time.Hour, nil)
	defer r.Stop()

	m := fleet.Machine{ID: 1}
	if _, err := r.Start(m); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := r.Start(m); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start err = %v, want ErrAlreadyRunning", err)
	}
	if _, err := r.Start(fleet.Machine{ID: 2}); err != nil {
		t.Fatalf("other machine: %v", err)
	}
}

func TestRunnerClear(t *testing.T) {
	r := NewRunner(time.Millisecond, nil)
	defer r.Stop()

	run, _ := r.Start(fleet.Machine{ID: 3})
	waitDone(t, r, run.ID, 2*time.Second)

	if _, ok := r.Latest(3); !ok {
		t.Fatal("Latest should find the finished run")
	}
	if err := r.Clear(run.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := r.Get(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("get after clear err = %v", err)
	}
	if _, ok := r.Latest(3); ok {
		t.Error("Latest should be empty after clear")
	}
	if err := r.Clear(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second clear err = %v", err)
	}
}

func TestRunnerClearActiveRun(t *testing.T) {
	r := NewRunner(time.Hour, nil)
	defer r.Stop()

	run, _ := r.Start(fleet.Machine{ID: 4})
	if err := r.Clear(run.ID); !errors.Is(err, ErrRunActive) {
		t.Errorf("clear active err = %v, want ErrRunActive", err)
	}
}

func TestRunnerStopCancelsRuns(t *testing.T) {
	r := NewRunner(time.Hour, nil)
	run, _ := r.Start(fleet.Machine{ID: 5})
	r.Stop()

	got, err := r.Get(run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Cancelled || got.Done {
		t.Errorf("after stop: %+v", got)
	}
	if _, err := r.Start(fleet.Machine{ID: 6}); !errors.Is(err, ErrStopped) {
		t.Errorf("start after stop err = %v, want ErrStopped", err)
	}
}

func TestRunnerNewRunReplacesPrevious(t *testing.T) {
	r := NewRunner(time.Millisecond, nil)
	defer r.Stop()

	first, _ := r.Start(fleet.Machine{ID: 1})
	waitDone(t, r, first.ID, 2*time.Second)
	second, err := r.Start(fleet.Machine{ID: 1})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if _, err := r.Get(first.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("previous run should be dropped, err = %v", err)
	}
	latest, _ := r.Latest(1)
	if latest.ID != second.ID {
		t.Errorf("Latest = %s, want %s", latest.ID, second.ID)
	}
}

func TestRunnerStopRacingStart(t *testing.T) {
	em := &mockEmitter{}
	r := NewRunner(time.Millisecond, em)

	var starters sync.WaitGroup
	for i := 1; i <= 20; i++ {
		starters.Add(1)
		go func(id int) {
			defer starters.Done()
			r.Start(fleet.Machine{ID: id})
		}(i)
	}
	r.Stop()
	starters.Wait()

	em.mu.Lock()
	progress := len(em.progress)
	em.mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	if _, err := r.Start(fleet.Machine{ID: 99}); !errors.Is(err, ErrStopped) {
		t.Errorf("start after stop err = %v, want ErrStopped", err)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.progress) != progress {
		t.Errorf("progress events after Stop: %d -> %d", progress, len(em.progress))
	}
}
