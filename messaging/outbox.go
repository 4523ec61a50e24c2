package messaging

import (
	"log"
	"sync"
	"time"

	"floorwatch/protocol"
	"floorwatch/store"
)

const (
	drainBatch      = 50
	purgeEvery      = time.Hour
	outboxRetention = 24 * time.Hour
)

// OutboxDrainer publishes queued envelopes once the broker is reachable.
type OutboxDrainer struct {
	db        *store.DB
	pub       Publisher
	interval  time.Duration
	lastPurge time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewOutboxDrainer(db *store.DB, pub Publisher, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:        db,
		pub:       pub,
		interval:  interval,
		lastPurge: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stopChan:
				return
			case now := <-ticker.C:
				d.Drain()
				if now.Sub(d.lastPurge) >= purgeEvery {
					d.purge(now)
				}
			}
		}
	}()
}

func (d *OutboxDrainer) Stop() {
	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
	d.wg.Wait()
}

func (d *OutboxDrainer) purge(now time.Time) {
	d.lastPurge = now
	n, err := d.db.PurgeOutbox(now.Add(-outboxRetention))
	if err != nil {
		log.Printf("purge outbox: %v", err)
		return
	}
	if n > 0 {
		log.Printf("purged %d old outbox messages", n)
	}
}

// Drain publishes one batch of pending messages and returns how many were
// sent. Envelopes past their expiry are acked without being published.
func (d *OutboxDrainer) Drain() int {
	if !d.pub.IsConnected() {
		return 0
	}

	msgs, err := d.db.ListPendingOutbox(drainBatch)
	if err != nil {
		log.Printf("list pending outbox: %v", err)
		return 0
	}

	sent := 0
	now := time.Now()
	for _, msg := range msgs {
		if env, err := protocol.Decode(msg.Payload); err == nil && protocol.IsExpired(env, now) {
			log.Printf("outbox msg %d (%s) expired, dropping", msg.ID, msg.MsgType)
			if err := d.db.AckOutbox(msg.ID); err != nil {
				log.Printf("ack outbox msg %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.pub.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("publish outbox msg %d: %v", msg.ID, err)
			if err := d.db.IncrementOutboxRetries(msg.ID); err != nil {
				log.Printf("bump outbox retries %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.db.AckOutbox(msg.ID); err != nil {
			log.Printf("ack outbox msg %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
