package www

import (
	"errors"
	"net/http"

	"floorwatch/diagnostics"
	"floorwatch/fleet"
	"floorwatch/store"
)

// machineCard is the data handed to the machine-card partial.
type machineCard struct {
	fleet.Machine
	Unit     string
	Controls bool
}

// basePage collects the fields every page template reads.
func (h *Handlers) basePage(r *http.Request, page string) map[string]any {
	unread, _ := h.engine.DB().CountUnreadNotifications()
	cfg := h.engine.AppConfig()
	return map[string]any{
		"Page":      page,
		"Prefs":     h.sessions.preferences(r),
		"Unread":    unread,
		"StationID": cfg.StationID,
	}
}

func cards(machines []fleet.Machine, unit string, controls bool) []machineCard {
	out := make([]machineCard, len(machines))
	for i, m := range machines {
		out[i] = machineCard{Machine: m, Unit: unit, Controls: controls}
	}
	return out
}

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	machines := h.engine.Fleet().List()
	data := h.basePage(r, "dashboard")
	prefs := data["Prefs"].(Preferences)
	data["Stats"] = fleet.ComputeStats(machines)
	data["Machines"] = machines
	data["Cards"] = cards(machines, prefs.TemperatureUnit, false)
	h.renderTemplate(w, "dashboard.html", data)
}

func (h *Handlers) handleMachines(w http.ResponseWriter, r *http.Request) {
	machines := h.engine.Fleet().List()
	data := h.basePage(r, "machines")
	prefs := data["Prefs"].(Preferences)
	data["Total"] = len(machines)
	data["Cards"] = cards(machines, prefs.TemperatureUnit, true)
	h.renderTemplate(w, "machines.html", data)
}

func (h *Handlers) handleMachineDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseMachineID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := h.engine.Fleet().Get(id)
	if errors.Is(err, fleet.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	activity, _ := h.engine.DB().ListActivityByMachine(id, 20)
	data := h.basePage(r, "machines")
	prefs := data["Prefs"].(Preferences)
	data["Machine"] = m
	data["Card"] = machineCard{Machine: m, Unit: prefs.TemperatureUnit, Controls: true}
	data["Statuses"] = fleet.AllStatuses
	data["Activity"] = activity
	data["Recommendations"] = diagnostics.Recommendations
	if run, ok := h.engine.Diagnostics().Latest(id); ok {
		data["Run"] = run
		passed, warnings, failed := diagnostics.Summary(run.Results)
		data["Passed"], data["Warnings"], data["Failed"] = passed, warnings, failed
	}
	h.renderTemplate(w, "machine.html", data)
}

func (h *Handlers) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	machines := h.engine.Fleet().List()
	data := h.basePage(r, "monitoring")
	data["Machines"] = machines
	data["Stats"] = fleet.ComputeStats(machines)
	h.renderTemplate(w, "monitoring.html", data)
}

func (h *Handlers) handleNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.DB().ListNotifications()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Notification{}
	}
	data := h.basePage(r, "notifications")
	data["Notifications"] = list
	h.renderTemplate(w, "notifications.html", data)
}

func (h *Handlers) handleSettings(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	data := h.basePage(r, "settings")
	data["Backend"] = cfg.Messaging.Backend
	data["RedisEnabled"] = cfg.Redis.Enabled
	data["DatabasePath"] = cfg.DatabasePath
	data["ConfigPath"] = h.engine.ConfigPath()
	data["StepInterval"] = cfg.Diagnostics.StepInterval
	h.renderTemplate(w, "settings.html", data)
}
