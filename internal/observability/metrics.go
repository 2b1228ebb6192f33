package observability

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeDegraded  = "degraded"
)

// Metrics tracks operational metrics of the poller. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Totals kept for the status API
	PollsTotal    atomic.Int64
	PollsDegraded atomic.Int64
	RenderWrites  atomic.Int64
	RecordsStored atomic.Int64
	StorageErrors atomic.Int64
	LevelAlerts   atomic.Int64

	registry      *prometheus.Registry
	polls         *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	writes        *prometheus.CounterVec
	tankLevel     *prometheus.GaugeVec
	siteFlow      *prometheus.GaugeVec
	siteAlarm     *prometheus.GaugeVec
	levelAlerts   *prometheus.CounterVec
	chartRedraws  *prometheus.CounterVec
	stored        prometheus.Counter
	storageErrors prometheus.Counter
	wsClients     prometheus.Gauge

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_polls_total",
			Help: "Polls per screen by outcome",
		}, []string{"screen", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telemetria_fetch_duration_seconds",
			Help:    "Time spent fetching a screen's data",
			Buckets: prometheus.DefBuckets,
		}, []string{"screen"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_render_writes_total",
			Help: "Element updates applied per screen",
		}, []string{"screen"}),
		tankLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetria_tank_level_meters",
			Help: "Last level reported per tank",
		}, []string{"tank"}),
		siteFlow: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetria_site_flow_lps",
			Help: "Last instantaneous flow per site in L/s",
		}, []string{"site"}),
		siteAlarm: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetria_site_alarm",
			Help: "1 when the site indicator is in alarm",
		}, []string{"site"}),
		levelAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_level_alerts_total",
			Help: "Level classification transitions into low or high",
		}, []string{"tank", "state"}),
		chartRedraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetria_chart_redraws_total",
			Help: "History chart redraws per tank",
		}, []string{"tank"}),
		stored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetria_records_stored_total",
			Help: "Readings written to the archive",
		}),
		storageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetria_storage_errors_total",
			Help: "Archive write failures",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telemetria_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.polls, m.fetchDuration, m.writes,
		m.tankLevel, m.siteFlow, m.siteAlarm,
		m.levelAlerts, m.chartRedraws,
		m.stored, m.storageErrors, m.wsClients,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePoll records one poll of screen.
func (m *Metrics) ObservePoll(screen, outcome string, fetch time.Duration) {
	if m == nil {
		return
	}
	m.PollsTotal.Add(1)
	if outcome == OutcomeDegraded {
		m.PollsDegraded.Add(1)
	}
	m.polls.WithLabelValues(screen, outcome).Inc()
	m.fetchDuration.WithLabelValues(screen).Observe(fetch.Seconds())
}

// AddWrites records element updates applied to a surface.
func (m *Metrics) AddWrites(screen string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RenderWrites.Add(int64(n))
	m.writes.WithLabelValues(screen).Add(float64(n))
}

// SetTankLevel records the last level of a tank.
func (m *Metrics) SetTankLevel(tank string, v float64) {
	if m == nil {
		return
	}
	m.tankLevel.WithLabelValues(tank).Set(v)
}

// SetSite records the last flow and indicator state of a site.
func (m *Metrics) SetSite(site string, flow float64, alarm bool) {
	if m == nil {
		return
	}
	m.siteFlow.WithLabelValues(site).Set(flow)
	v := 0.0
	if alarm {
		v = 1
	}
	m.siteAlarm.WithLabelValues(site).Set(v)
}

// LevelAlert records a transition into low or high.
func (m *Metrics) LevelAlert(tank, state string) {
	if m == nil {
		return
	}
	m.LevelAlerts.Add(1)
	m.levelAlerts.WithLabelValues(tank, state).Inc()
}

// ChartRedrawn records a chart redraw.
func (m *Metrics) ChartRedrawn(tank string) {
	if m == nil {
		return
	}
	m.chartRedraws.WithLabelValues(tank).Inc()
}

// Stored records archived readings.
func (m *Metrics) Stored(n int) {
	if m == nil {
		return
	}
	m.RecordsStored.Add(int64(n))
	m.stored.Add(float64(n))
}

// StorageFailed records an archive failure.
func (m *Metrics) StorageFailed() {
	if m == nil {
		return
	}
	m.StorageErrors.Add(1)
	m.storageErrors.Inc()
}

// SetClients records the number of connected WebSocket clients.
func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

// Snapshot returns the totals as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		"polls_total":    m.PollsTotal.Load(),
		"polls_degraded": m.PollsDegraded.Load(),
		"render_writes":  m.RenderWrites.Load(),
		"records_stored": m.RecordsStored.Load(),
		"storage_errors": m.StorageErrors.Load(),
		"level_alerts":   m.LevelAlerts.Load(),
	}
}
