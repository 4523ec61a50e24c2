package fleet

import "time"

// Performance values set by the control actions.
const (
	StartPerformance   = 85
	StopPerformance    = 0
	RestartPerformance = 90
)

// TimestampLayout is the format of Machine.LastUpdate.
const TimestampLayout = time.RFC3339Nano

// FormatTimestamp renders t the way LastUpdate stores it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a LastUpdate value.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Apply returns m with the control action applied. Only status,
// performance and lastUpdate change. An unknown action returns m as is.
func Apply(m Machine, action Action, now time.Time) Machine {
	switch action {
	case ActionStart:
		m.Status = StatusRunning
		m.Performance = StartPerformance
	case ActionStop:
		m.Status = StatusIdle
		m.Performance = StopPerformance
	case ActionRestart:
		m.Status = StatusRunning
		m.Performance = RestartPerformance
	default:
		return m
	}
	m.LastUpdate = FormatTimestamp(now)
	return m
}

// Replace returns a new slice where the record with updated.ID is swapped
// for updated. Other records are copied through untouched. The second
// return value reports whether a record matched.
func Replace(machines []Machine, updated Machine) ([]Machine, bool) {
	out := make([]Machine, len(machines))
	found := false
	for i, m := range machines {
		if m.ID == updated.ID {
			out[i] = updated
			found = true
			continue
		}
		out[i] = m
	}
	return out, found
}
