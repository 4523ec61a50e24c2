package messaging

import (
	"log"
	"os"
	"sync"
	"time"

	"floorwatch/fleet"
	"floorwatch/protocol"
)

// Heartbeater publishes a fleet.summary envelope on startup and periodically.
type Heartbeater struct {
	pub       Publisher
	stationID string
	topic     string
	interval  time.Duration
	stats     func() fleet.Stats
	startTime time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewHeartbeater creates a heartbeater reporting the aggregates returned by stats.
func NewHeartbeater(pub Publisher, stationID, topic string, interval time.Duration, stats func() fleet.Stats) *Heartbeater {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Heartbeater{
		pub:       pub,
		stationID: stationID,
		topic:     topic,
		interval:  interval,
		stats:     stats,
		stopCh:    make(chan struct{}),
	}
}

// Start sends an initial summary and begins the heartbeat loop.
func (h *Heartbeater) Start() {
	h.startTime = time.Now()
	h.send()
	h.wg.Add(1)
	go h.loop()
}

// Stop halts the heartbeat loop.
func (h *Heartbeater) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}

func (h *Heartbeater) summary() *protocol.FleetSummary {
	hostname, _ := os.Hostname()
	return &protocol.FleetSummary{
		StationID: h.stationID,
		Hostname:  hostname,
		Uptime:    int64(time.Since(h.startTime).Seconds()),
		Stats:     h.stats(),
	}
}

func (h *Heartbeater) send() {
	if !h.pub.IsConnected() {
		return
	}
	env, err := protocol.NewEnvelope(protocol.TypeFleetSummary, protocol.StationAddress(h.stationID), h.summary())
	if err != nil {
		log.Printf("heartbeater: build summary: %v", err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		log.Printf("heartbeater: encode summary: %v", err)
		return
	}
	if err := h.pub.Publish(h.topic, data); err != nil {
		log.Printf("heartbeater: send summary: %v", err)
	}
}

func (h *Heartbeater) loop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.send()
		}
	}
}
