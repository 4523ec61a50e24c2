package www

import (
	"floorwatch/engine"
	"floorwatch/fleet"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the dashboard's Prometheus collectors on a private registry.
type metrics struct {
	registry *prometheus.Registry

	controls       *prometheus.CounterVec
	updates        prometheus.Counter
	diagnostics    prometheus.Counter
	notifications  *prometheus.CounterVec
	machines       *prometheus.GaugeVec
	avgPerformance prometheus.Gauge
}

func newMetrics(hub *EventHub) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		controls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorwatch_control_actions_total",
			Help: "Control actions applied to machines.",
		}, []string{"action"}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorwatch_settings_updates_total",
			Help: "Machine settings replacements.",
		}),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "floorwatch_diagnostics_runs_total",
			Help: "Completed diagnostics runs.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floorwatch_notifications_total",
			Help: "Notifications raised, by kind.",
		}, []string{"kind"}),
		machines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "floorwatch_machines",
			Help: "Machines by status.",
		}, []string{"status"}),
		avgPerformance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "floorwatch_average_performance",
			Help: "Mean performance across the fleet.",
		}),
	}
	sseClients := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "floorwatch_sse_clients",
		Help: "Connected dashboard browsers.",
	}, func() float64 { return float64(hub.ClientCount()) })

	m.registry.MustRegister(
		m.controls, m.updates, m.diagnostics, m.notifications,
		m.machines, m.avgPerformance, sseClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// observe keeps the fleet gauges current and counts engine events.
func (m *metrics) observe(eng *engine.Engine) {
	m.refresh(eng.Fleet().List())

	eng.Events.Subscribe(func(evt engine.Event) {
		switch evt.Type {
		case engine.EventMachineControlled:
			p := evt.Payload.(engine.MachineControlledEvent)
			m.controls.WithLabelValues(string(p.Action)).Inc()
			m.refresh(eng.Fleet().List())
		case engine.EventMachineUpdated:
			m.updates.Inc()
			m.refresh(eng.Fleet().List())
		case engine.EventDiagnosticsCompleted:
			m.diagnostics.Inc()
		case engine.EventNotificationCreated:
			p := evt.Payload.(engine.NotificationCreatedEvent)
			m.notifications.WithLabelValues(p.Notification.Kind).Inc()
		}
	})
}

func (m *metrics) refresh(machines []fleet.Machine) {
	counts := make(map[fleet.Status]int, len(fleet.AllStatuses))
	for _, mc := range machines {
		counts[mc.Status]++
	}
	for _, s := range fleet.AllStatuses {
		m.machines.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	if len(machines) > 0 {
		m.avgPerformance.Set(fleet.AveragePerformance(machines))
	}
}
