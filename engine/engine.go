package engine

import (
	"fmt"
	"sync"
	"time"

	"floorwatch/config"
	"floorwatch/diagnostics"
	"floorwatch/fleet"
	"floorwatch/store"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...any)

// Mirror receives every machine change. Implemented by the Redis mirror.
type Mirror interface {
	Machine(m fleet.Machine, stats fleet.Stats) error
}

// Engine centralizes all business logic and orchestrates subsystems.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	seed       []fleet.Machine
	logFn      LogFunc
	debugFn    LogFunc

	fleet  *fleet.Fleet
	runner *diagnostics.Runner

	mirrorMu sync.RWMutex
	mirror   Mirror

	Events   *EventBus
	stopOnce sync.Once
}

// Config holds the parameters needed to create an Engine.
type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	// Seed replaces the built-in demo fleet when non-nil.
	Seed    []fleet.Machine
	LogFunc LogFunc
	Debug   bool
}

// New creates a new Engine. Call Start() to initialize and wire subsystems.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	debugFn := LogFunc(func(string, ...any) {})
	if c.Debug {
		debugFn = logFn
	}
	cfg := c.AppConfig
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Engine{
		cfg:        cfg,
		configPath: c.ConfigPath,
		db:         c.DB,
		seed:       c.Seed,
		logFn:      logFn,
		debugFn:    debugFn,
		Events:     NewEventBus(),
	}
}

// Start creates the fleet and the diagnostics runner and wires event handlers.
func (e *Engine) Start() {
	seed := e.seed
	if seed == nil {
		seed = fleet.Seed(time.Now())
	}
	e.fleet = fleet.NewFleet(seed, &fleetEmitter{bus: e.Events})
	e.runner = diagnostics.NewRunner(e.cfg.Diagnostics.StepInterval, &diagnosticsEmitter{bus: e.Events})

	e.wireEventHandlers()

	e.logFn("Engine started: station=%s machines=%d", e.cfg.StationID, e.fleet.Len())
}

// Stop shuts down all subsystems gracefully.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.runner != nil {
			e.runner.Stop()
		}
		e.logFn("Engine stopped")
	})
}

// SetMirror attaches (or with nil, detaches) the fleet mirror.
func (e *Engine) SetMirror(m Mirror) {
	e.mirrorMu.Lock()
	e.mirror = m
	e.mirrorMu.Unlock()
}

// RunDiagnostics starts a diagnostics session against the current record.
func (e *Engine) RunDiagnostics(machineID int) (diagnostics.Run, error) {
	m, err := e.fleet.Get(machineID)
	if err != nil {
		return diagnostics.Run{}, err
	}
	run, err := e.runner.Start(m)
	if err != nil {
		return diagnostics.Run{}, fmt.Errorf("machine %d: %w", machineID, err)
	}
	e.debugFn("diagnostics started: run=%s machine=%d", run.ID, machineID)
	return run, nil
}

// MessagingStatus publishes a broker connection change to subscribers.
func (e *Engine) MessagingStatus(backend string, connected bool, err error) {
	evt := MessagingEvent{Backend: backend, Connected: connected}
	typ := EventMessagingConnected
	if !connected {
		typ = EventMessagingDisconnected
		if err != nil {
			evt.Error = err.Error()
		}
	}
	e.Events.Emit(Event{Type: typ, Payload: evt})
}

// DB returns the database handle.
func (e *Engine) DB() *store.DB { return e.db }

// AppConfig returns the app config.
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// ConfigPath returns the config file path.
func (e *Engine) ConfigPath() string { return e.configPath }

// Fleet returns the machine store.
func (e *Engine) Fleet() *fleet.Fleet { return e.fleet }

// Diagnostics returns the diagnostics runner.
func (e *Engine) Diagnostics() *diagnostics.Runner { return e.runner }
