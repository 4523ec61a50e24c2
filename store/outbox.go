package store

import "time"

// MaxOutboxRetries is the number of failed sends after which a message is
// left for PurgeOutbox instead of being retried.
const MaxOutboxRetries = 10

// OutboxMessage is a queued outbound envelope.
type OutboxMessage struct {
	ID        int64      `json:"id"`
	Topic     string     `json:"topic"`
	Payload   []byte     `json:"payload"`
	MsgType   string     `json:"msg_type"`
	Retries   int        `json:"retries"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType string) (int64, error) {
	res, err := db.Exec(`INSERT INTO outbox (topic, payload, msg_type) VALUES (?, ?, ?)`, topic, payload, msgType)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPendingOutbox returns unsent messages still under the retry cap, oldest first.
func (db *DB) ListPendingOutbox(limit int) ([]OutboxMessage, error) {
	rows, err := db.Query(`
		SELECT id, topic, payload, msg_type, retries, created_at
		FROM outbox
		WHERE sent_at IS NULL AND retries < ?
		ORDER BY id
		LIMIT ?`, MaxOutboxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var created string
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.Retries, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = scanTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.Exec(`UPDATE outbox SET sent_at = datetime('now','localtime') WHERE id = ?`, id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.Exec(`UPDATE outbox SET retries = retries + 1 WHERE id = ?`, id)
	return err
}

// CountPendingOutbox reports how many messages are waiting to be sent.
func (db *DB) CountPendingOutbox() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM outbox WHERE sent_at IS NULL AND retries < ?`, MaxOutboxRetries).Scan(&n)
	return n, err
}

// PurgeOutbox deletes sent and abandoned messages created before cutoff.
func (db *DB) PurgeOutbox(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM outbox
		WHERE created_at < ? AND (sent_at IS NOT NULL OR retries >= ?)`,
		cutoff.In(time.Local).Format(timeLayout), MaxOutboxRetries)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
