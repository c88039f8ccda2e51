package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"perspective-gateway/analyzer/domain"
)

const metricsSubsystem = "analyzer"

// PrometheusStatsStore expõe os eventos do dispatcher como métricas.
//
//   - analyzer_events_total{priority,outcome}
//   - analyzer_failed_responses_total{priority}
//   - analyzer_queue_depth{priority}
//   - analyzer_call_duration_seconds{priority} (do accept até completed)
//   - analyzer_release_delay_seconds{priority} (do accept até released)
type PrometheusStatsStore struct {
	events       *prometheus.CounterVec
	failed       *prometheus.CounterVec
	depth        *prometheus.GaugeVec
	callDuration *prometheus.HistogramVec
	releaseDelay *prometheus.HistogramVec
}

// NewPrometheusStatsStore cria e registra os coletores em reg.
// Com reg nil, nada é registrado (útil em testes).
func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: metricsSubsystem,
			Name:      "events_total",
			Help:      "Count of dispatcher lifecycle events by priority and outcome.",
		}, []string{"priority", "outcome"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: metricsSubsystem,
			Name:      "failed_responses_total",
			Help:      "Count of released responses carrying an error.",
		}, []string{"priority"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: metricsSubsystem,
			Name:      "queue_depth",
			Help:      "Number of in-flight calls held by each priority tier.",
		}, []string{"priority"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: metricsSubsystem,
			Name:      "call_duration_seconds",
			Help:      "Time from acceptance until the remote call completed.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"priority"}),
		releaseDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: metricsSubsystem,
			Name:      "release_delay_seconds",
			Help:      "Time from acceptance until the response was released by the pacer.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"priority"}),
	}
	if reg != nil {
		for _, c := range s.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.events, s.failed, s.depth, s.callDuration, s.releaseDelay}
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	p := ev.Priority.String()
	s.events.WithLabelValues(p, string(ev.Outcome)).Inc()

	switch ev.Outcome {
	case domain.OutcomeAccepted, domain.OutcomeRejected:
		s.depth.WithLabelValues(p).Set(float64(ev.Depth))
	case domain.OutcomeCompleted:
		s.callDuration.WithLabelValues(p).Observe(ev.Latency.Seconds())
	case domain.OutcomeReleased:
		s.depth.WithLabelValues(p).Set(float64(ev.Depth))
		s.releaseDelay.WithLabelValues(p).Observe(ev.Latency.Seconds())
		if ev.Failed {
			s.failed.WithLabelValues(p).Inc()
		}
	}
	return nil
}
