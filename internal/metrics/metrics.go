package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dental_captcha"

// Metrics holds the annotation engine counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated     prometheus.Counter
	sessionsCompleted   prometheus.Counter
	annotationsRecorded prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	questionsPerSession prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Annotation sessions created.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "completed_total",
			Help:      "Annotation sessions that reached the completed state.",
		}),
		annotationsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "annotations",
			Name:      "recorded_total",
			Help:      "Answers accepted by the ledger.",
		}),
		submissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "annotations",
			Name:      "rejected_total",
			Help:      "Answers rejected by the ledger, by reason.",
		}, []string{"reason"}),
		questionsPerSession: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "questions",
			Help:      "Questions bound per session.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsCreated,
		m.sessionsCompleted,
		m.annotationsRecorded,
		m.submissionsRejected,
		m.questionsPerSession,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionCreated(questions int) {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.questionsPerSession.Observe(float64(questions))
}

func (m *Metrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

func (m *Metrics) AnnotationRecorded() {
	if m == nil {
		return
	}
	m.annotationsRecorded.Inc()
}

func (m *Metrics) SubmissionRejected(reason string) {
	if m == nil {
		return
	}
	m.submissionsRejected.WithLabelValues(reason).Inc()
}
