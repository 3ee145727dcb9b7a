package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.SessionCreated(3)
	m.SessionCreated(5)
	m.AnnotationRecorded()
	m.SessionCompleted()
	m.SubmissionRejected("question_already_answered")
	m.SubmissionRejected("question_already_answered")

	assert.InDelta(t, 2, testutil.ToFloat64(m.sessionsCreated), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.annotationsRecorded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sessionsCompleted), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.submissionsRejected.WithLabelValues("question_already_answered")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionCreated(1)
		m.SessionCompleted()
		m.AnnotationRecorded()
		m.SubmissionRejected("x")
	})
	assert.Nil(t, m.Registry())
}
