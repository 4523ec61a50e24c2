package www

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"floorwatch/diagnostics"
	"floorwatch/fleet"
	"floorwatch/store"

	"github.com/go-chi/chi/v5"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "machines": h.engine.Fleet().Len()})
}

// --- Machines ---

func (h *Handlers) apiListMachines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Fleet().List())
}

func (h *Handlers) apiGetMachine(w http.ResponseWriter, r *http.Request) {
	id, err := parseMachineID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.engine.Fleet().Get(id)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	writeJSON(w, m)
}

func (h *Handlers) apiControlMachine(w http.ResponseWriter, r *http.Request) {
	id, err := parseMachineID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Action fleet.Action `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Unknown actions are not an error: the record comes back unchanged.
	m, err := h.engine.Fleet().Control(id, req.Action)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	writeJSON(w, m)
}

func (h *Handlers) apiUpdateMachine(w http.ResponseWriter, r *http.Request) {
	id, err := parseMachineID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var m fleet.Machine
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.ID != id {
		writeError(w, http.StatusBadRequest, "machine id in body does not match path")
		return
	}
	updated, err := h.engine.Fleet().Update(m)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	writeJSON(w, updated)
}

func (h *Handlers) apiStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Fleet().Stats())
}

func writeMachineError(w http.ResponseWriter, err error) {
	if errors.Is(err, fleet.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- Diagnostics ---

type diagnosticsResponse struct {
	diagnostics.Run
	Recommendations []diagnostics.Recommendation `json:"recommendations,omitempty"`
}

func newDiagnosticsResponse(run diagnostics.Run) diagnosticsResponse {
	resp := diagnosticsResponse{Run: run}
	if run.Done {
		resp.Recommendations = diagnostics.Recommendations
	}
	return resp
}

func (h *Handlers) apiStartDiagnostics(w http.ResponseWriter, r *http.Request) {
	id, err := parseMachineID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := h.engine.RunDiagnostics(id)
	switch {
	case errors.Is(err, fleet.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, diagnostics.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSONStatus(w, http.StatusAccepted, newDiagnosticsResponse(run))
}

func (h *Handlers) apiGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	run, err := h.engine.Diagnostics().Get(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, newDiagnosticsResponse(run))
}

func (h *Handlers) apiClearDiagnostics(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Diagnostics().Clear(chi.URLParam(r, "runID"))
	switch {
	case errors.Is(err, diagnostics.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, diagnostics.ErrRunActive):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// --- Activity ---

func (h *Handlers) apiListActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	db := h.engine.DB()
	var list []store.Activity
	var err error
	if s := r.URL.Query().Get("machine"); s != "" {
		machineID, convErr := strconv.Atoi(s)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "invalid machine ID")
			return
		}
		list, err = db.ListActivityByMachine(machineID, limit)
	} else {
		list, err = db.ListActivity(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []store.Activity{}
	}
	writeJSON(w, list)
}

// --- Notifications ---

func (h *Handlers) apiListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.DB().ListNotifications()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []store.Notification{}
	}
	writeJSON(w, list)
}

func (h *Handlers) apiMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}
	if err := h.engine.DB().MarkNotificationRead(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeUnread(w)
}

func (h *Handlers) apiMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DB().MarkAllNotificationsRead(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeUnread(w)
}

func (h *Handlers) writeUnread(w http.ResponseWriter) {
	unread, err := h.engine.DB().CountUnreadNotifications()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]int{"unread": unread})
}

// --- Preferences ---

func (h *Handlers) apiGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sessions.preferences(r))
}

func (h *Handlers) apiUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	// Decoding over the current values lets clients send only what changed.
	prefs := h.sessions.preferences(r)
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := prefs.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.sessions.savePreferences(w, r, prefs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, prefs)
}
