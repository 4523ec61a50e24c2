package www

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"floorwatch/engine"
	"floorwatch/fleet"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildVer busts static asset caches once per restart.
var buildVer = time.Now().Format("20060102150405")

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine   *engine.Engine
	sessions *sessionStore
	tmpl     *template.Template
	eventHub *EventHub
	metrics  *metrics
}

// NewRouter creates the chi router and returns it along with a stop function.
func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: NewEventHub(),
	}

	funcMap := template.FuncMap{
		"join":      strings.Join,
		"band":      fleet.PerformanceBand,
		"attention": func(s fleet.Status) bool { return s.NeedsAttention() },
		"temp":      displayTemperature,
		"updated":   lastUpdateLabel,
		"ago":       func(t time.Time) string { return timeAgo(t, time.Now()) },
		"pct":       func(f float64) string { return fmt.Sprintf("%.0f%%", f) },
		"buildVer":  func() string { return buildVer },
		"isRunning": func(s fleet.Status) bool { return s == fleet.StatusRunning },
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}
	h.tmpl = template.Must(template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html", "templates/partials/*.html"))

	h.eventHub.Start()
	h.eventHub.SetupEngineListeners(eng)

	h.metrics = newMetrics(h.eventHub)
	h.metrics.observe(eng)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "text/html", "text/css", "application/javascript", "application/json"))

	faviconData, _ := fs.ReadFile(staticFS, "static/favicon.svg")
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(faviconData)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(StaticFS()))))

	r.Get("/events", h.eventHub.HandleSSE)
	r.Handle("/metrics", promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", h.handleHealth)

	// Pages (no authentication: the dashboard is an internal floor tool)
	r.Get("/", h.handleDashboard)
	r.Get("/machines", h.handleMachines)
	r.Get("/machines/{id}", h.handleMachineDetail)
	r.Get("/monitoring", h.handleMonitoring)
	r.Get("/notifications", h.handleNotifications)
	r.Get("/settings", h.handleSettings)

	r.Route("/api", func(r chi.Router) {
		r.Get("/machines", h.apiListMachines)
		r.Get("/machines/{id}", h.apiGetMachine)
		r.Put("/machines/{id}", h.apiUpdateMachine)
		r.Post("/machines/{id}/control", h.apiControlMachine)
		r.Post("/machines/{id}/diagnostics", h.apiStartDiagnostics)
		r.Get("/stats", h.apiStats)

		r.Get("/diagnostics/{runID}", h.apiGetDiagnostics)
		r.Delete("/diagnostics/{runID}", h.apiClearDiagnostics)

		r.Get("/activity", h.apiListActivity)

		r.Get("/notifications", h.apiListNotifications)
		r.Post("/notifications/read-all", h.apiMarkAllNotificationsRead)
		r.Post("/notifications/{id}/read", h.apiMarkNotificationRead)

		r.Get("/preferences", h.apiGetPreferences)
		r.Put("/preferences", h.apiUpdatePreferences)
	})

	return r, func() {
		h.eventHub.Stop()
	}
}

func (h *Handlers) renderTemplate(w http.ResponseWriter, name string, data any) {
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
