package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"floorwatch/fleet"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseID(r *http.Request, param string) (int64, error) {
	s := chi.URLParam(r, param)
	return strconv.ParseInt(s, 10, 64)
}

func parseMachineID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, fmt.Errorf("invalid machine ID")
	}
	return id, nil
}

// displayTemperature renders a Celsius reading in the preferred unit.
func displayTemperature(celsius float64, unit string) string {
	if unit == "F" {
		return fmt.Sprintf("%.0f°F", celsius*9/5+32)
	}
	return fmt.Sprintf("%.0f°C", celsius)
}

// timeAgo renders a coarse relative time for the notifications list.
func timeAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// lastUpdateLabel formats a machine's stored timestamp for display; values
// that do not parse are shown verbatim.
func lastUpdateLabel(s string) string {
	t, err := fleet.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
