package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"floorwatch/engine"
)

// SSE event names sent to the browser.
const (
	sseMachineUpdate       = "machine-update"
	sseDiagnosticsProgress = "diagnostics-progress"
	sseDiagnosticsComplete = "diagnostics-complete"
	sseNotification        = "notification"
	sseMessagingStatus     = "messaging-status"
)

// SSEEvent is one event sent to SSE clients. MachineID scopes
// diagnostics events so a detail page only sees its own machine.
type SSEEvent struct {
	Type      string
	MachineID int
	Data      any
}

type encodedEvent struct {
	name      string
	machineID int
	data      []byte
}

type sseClient struct {
	machineID int // 0 receives every machine
	events    chan encodedEvent
}

func (c *sseClient) wants(evt encodedEvent) bool {
	return c.machineID == 0 || evt.machineID == 0 || evt.machineID == c.machineID
}

// EventHub fans engine events out to connected browsers.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[*sseClient]struct{}
	broadcast chan encodedEvent
	stopChan  chan struct{}
	keepalive time.Duration
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[*sseClient]struct{}),
		broadcast: make(chan encodedEvent, 256),
		stopChan:  make(chan struct{}),
		keepalive: 30 * time.Second,
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case <-h.stopChan:
	default:
		close(h.stopChan)
	}
}

// Broadcast encodes evt once and queues it for every interested client.
// Events are dropped when the hub is backed up.
func (h *EventHub) Broadcast(evt SSEEvent) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		log.Printf("sse: encode %s: %v", evt.Type, err)
		return
	}
	select {
	case h.broadcast <- encodedEvent{name: evt.Type, machineID: evt.MachineID, data: data}:
	default:
	}
}

// ClientCount reports the number of connected browsers.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) register(c *sseClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *EventHub) unregister(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *EventHub) run() {
	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(evt) {
					continue
				}
				select {
				case c.events <- evt:
				default: // slow client
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleSSE streams events to one browser. ?machine=ID limits
// diagnostics events to that machine.
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	client := &sseClient{events: make(chan encodedEvent, 64)}
	if v := r.URL.Query().Get("machine"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			http.Error(w, "invalid machine", http.StatusBadRequest)
			return
		}
		client.machineID = id
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.register(client)
	defer h.unregister(client)

	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.stopChan:
			return
		case evt := <-client.events:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.name, evt.data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// toSSE maps an engine event to the browser event, if the browser cares.
func toSSE(evt engine.Event) (SSEEvent, bool) {
	switch evt.Type {
	case engine.EventMachineControlled:
		p := evt.Payload.(engine.MachineControlledEvent)
		return SSEEvent{Type: sseMachineUpdate, Data: p.After}, true
	case engine.EventMachineUpdated:
		p := evt.Payload.(engine.MachineUpdatedEvent)
		return SSEEvent{Type: sseMachineUpdate, Data: p.After}, true
	case engine.EventDiagnosticsStarted:
		p := evt.Payload.(engine.DiagnosticsStartedEvent)
		return SSEEvent{Type: sseDiagnosticsProgress, MachineID: p.MachineID, Data: engine.DiagnosticsProgressEvent{
			RunID: p.RunID, MachineID: p.MachineID,
		}}, true
	case engine.EventDiagnosticsProgress:
		p := evt.Payload.(engine.DiagnosticsProgressEvent)
		return SSEEvent{Type: sseDiagnosticsProgress, MachineID: p.MachineID, Data: p}, true
	case engine.EventDiagnosticsCompleted:
		p := evt.Payload.(engine.DiagnosticsCompletedEvent)
		return SSEEvent{Type: sseDiagnosticsComplete, MachineID: p.MachineID, Data: p}, true
	case engine.EventNotificationCreated:
		return SSEEvent{Type: sseNotification, Data: evt.Payload}, true
	case engine.EventMessagingConnected, engine.EventMessagingDisconnected:
		return SSEEvent{Type: sseMessagingStatus, Data: evt.Payload}, true
	}
	return SSEEvent{}, false
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.Subscribe(func(evt engine.Event) {
		if sseEvt, ok := toSSE(evt); ok {
			h.Broadcast(sseEvt)
		}
	})

	log.Printf("SSE listeners wired to engine events")
}
