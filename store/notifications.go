package store

import (
	"database/sql"
	"time"
)

// Notification kinds
const (
	NotifyInfo     = "info"
	NotifyWarning  = "warning"
	NotifyCritical = "critical"
)

// Notification is an alert shown on the notifications page.
type Notification struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Kind        string    `json:"kind"`
	MachineID   *int64    `json:"machine_id"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

func (db *DB) CreateNotification(n *Notification) (int64, error) {
	res, err := db.Exec(`INSERT INTO notifications (title, description, kind, machine_id) VALUES (?, ?, ?, ?)`,
		n.Title, n.Description, n.Kind, n.MachineID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) GetNotification(id int64) (*Notification, error) {
	n := &Notification{}
	var createdAt string
	var machineID sql.NullInt64
	err := db.QueryRow(`SELECT id, title, description, kind, machine_id, read, created_at FROM notifications WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Description, &n.Kind, &machineID, &n.Read, &createdAt)
	if err != nil {
		return nil, err
	}
	if machineID.Valid {
		n.MachineID = &machineID.Int64
	}
	n.CreatedAt = scanTime(createdAt)
	return n, nil
}

// ListNotifications returns the newest notifications first.
func (db *DB) ListNotifications() ([]Notification, error) {
	rows, err := db.Query(`SELECT id, title, description, kind, machine_id, read, created_at FROM notifications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		var machineID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.Kind, &machineID, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		if machineID.Valid {
			id := machineID.Int64
			n.MachineID = &id
		}
		n.CreatedAt = scanTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) MarkNotificationRead(id int64) error {
	res, err := db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) MarkAllNotificationsRead() error {
	_, err := db.Exec(`UPDATE notifications SET read = 1 WHERE read = 0`)
	return err
}

func (db *DB) CountUnreadNotifications() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&n)
	return n, err
}
