package store

const schema = `
CREATE TABLE IF NOT EXISTS activity (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    machine_id   INTEGER NOT NULL,
    machine_name TEXT NOT NULL DEFAULT '',
    kind         TEXT NOT NULL,
    action       TEXT NOT NULL DEFAULT '',
    old_status   TEXT NOT NULL DEFAULT '',
    new_status   TEXT NOT NULL DEFAULT '',
    detail       TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_activity_machine ON activity(machine_id);

CREATE TABLE IF NOT EXISTS notifications (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL DEFAULT 'info',
    machine_id  INTEGER,
    read        INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS outbox (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    topic      TEXT NOT NULL,
    payload    BLOB NOT NULL,
    msg_type   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;
`

// seedNotifications are the alerts present when the dashboard first starts.
const seedNotifications = `
INSERT INTO notifications (title, description, kind, read, created_at) VALUES
    ('Machine Maintenance Required', 'CNC Machine #1 requires scheduled maintenance', 'warning', 0, datetime('now','localtime','-2 hours')),
    ('System Update Available', 'A new firmware update is available for your machines', 'info', 1, datetime('now','localtime','-5 hours')),
    ('Performance Alert', '3D Printer #2 performance has dropped below threshold', 'critical', 0, datetime('now','localtime','-1 day')),
    ('New Message', 'You have a new message from the system administrator', 'info', 1, datetime('now','localtime','-2 days'));
`

func (db *DB) migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM notifications").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.Exec(seedNotifications); err != nil {
			return err
		}
	}
	return nil
}
