package store

import "time"

// Activity kinds
const (
	ActivityControl     = "control"
	ActivitySettings    = "settings"
	ActivityDiagnostics = "diagnostics"
)

// Activity is one entry of the operator activity log.
type Activity struct {
	ID          int64     `json:"id"`
	MachineID   int       `json:"machine_id"`
	MachineName string    `json:"machine_name"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	Detail      string    `json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}

func (db *DB) InsertActivity(a *Activity) (int64, error) {
	res, err := db.Exec(`INSERT INTO activity (machine_id, machine_name, kind, action, old_status, new_status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.MachineID, a.MachineName, a.Kind, a.Action, a.OldStatus, a.NewStatus, a.Detail)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const activityColumns = `id, machine_id, machine_name, kind, action, old_status, new_status, detail, created_at`

// ListActivity returns the newest entries first.
func (db *DB) ListActivity(limit int) ([]Activity, error) {
	return db.queryActivity(`SELECT `+activityColumns+` FROM activity ORDER BY id DESC LIMIT ?`, limit)
}

// ListActivityByMachine returns the newest entries for one machine first.
func (db *DB) ListActivityByMachine(machineID, limit int) ([]Activity, error) {
	return db.queryActivity(`SELECT `+activityColumns+` FROM activity WHERE machine_id = ? ORDER BY id DESC LIMIT ?`, machineID, limit)
}

func (db *DB) queryActivity(query string, args ...any) ([]Activity, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var a Activity
		var createdAt string
		if err := rows.Scan(&a.ID, &a.MachineID, &a.MachineName, &a.Kind, &a.Action,
			&a.OldStatus, &a.NewStatus, &a.Detail, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = scanTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
