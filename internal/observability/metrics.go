package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the report pipeline.
type Metrics struct {
	ReportsSubmitted *prometheus.CounterVec // labels: method={sensor,manual}
	RecordsCreated   prometheus.Counter
	RecordsMerged    prometheus.Counter
	BroadcastsSent   *prometheus.CounterVec // labels: kind={global,session}
	DroppedSends     prometheus.Counter
	ConnectedClients prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsSubmitted,
		m.RecordsCreated,
		m.RecordsMerged,
		m.BroadcastsSent,
		m.DroppedSends,
		m.ConnectedClients,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadpulse",
			Name:      "reports_submitted_total",
			Help:      "Total speed bump reports submitted, by detection method.",
		}, []string{"method"}),
		RecordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadpulse",
			Name:      "records_created_total",
			Help:      "Total new community records created.",
		}),
		RecordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadpulse",
			Name:      "records_merged_total",
			Help:      "Total reports merged into an existing community record.",
		}),
		BroadcastsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadpulse",
			Name:      "broadcasts_sent_total",
			Help:      "Messages fanned out to clients, by scope.",
		}, []string{"kind"}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadpulse",
			Name:      "dropped_sends_total",
			Help:      "Messages dropped because a client send buffer was full.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roadpulse",
			Name:      "connected_clients",
			Help:      "Currently connected websocket clients.",
		}),
	}
}
