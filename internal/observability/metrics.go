package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.  Each
// instance owns its registry so several can coexist in tests.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ThreadEvents  *prometheus.CounterVec
	RunOutcomes   *prometheus.CounterVec
	PollAttempts  prometheus.Histogram
	ReplyLatency  prometheus.Histogram
	ActiveThreads prometheus.Gauge
	Extractions   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ThreadEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_thread_events_total",
			Help:      "Assistant thread lifecycle events by type.",
		}, []string{"event"}),
		RunOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_runs_total",
			Help:      "Assistant runs by outcome.",
		}, []string{"outcome"}),
		PollAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_poll_attempts",
			Help:      "Status checks performed per run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 20},
		}),
		ReplyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_reply_latency_seconds",
			Help:      "Time from submitting a prompt to receiving a reply or timing out.",
			Buckets:   []float64{1, 2, 4, 6, 10, 15, 20, 30},
		}),
		ActiveThreads: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assistant_active_threads",
			Help:      "Assistant ids with a cached conversation thread.",
		}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_extractions_total",
			Help:      "Reply extractions by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}
}

func (m *Metrics) ThreadEvent(event string) {
	if m == nil {
		return
	}
	m.ThreadEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) RunFinished(outcome string, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunOutcomes.WithLabelValues(outcome).Inc()
	m.PollAttempts.Observe(float64(attempts))
	m.ReplyLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) SetActiveThreads(n int) {
	if m == nil {
		return
	}
	m.ActiveThreads.Set(float64(n))
}

func (m *Metrics) Extraction(mode, outcome string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(mode, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
