package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordMutation(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordMutation("segment", "update", nil)
	m.RecordMutation("segment", "update", nil)
	m.RecordMutation("segment", "update", errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("segment", "update", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.mutationsTotal.WithLabelValues("segment", "update", "error")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("criteria", "create", nil)
		m.RecordAuditFailure()
		m.RecordAuditDropped()
		m.RecordCache("hit")
		m.RecordScore("CATEGORY")
		m.RecordImport("api", nil)
		m.ObserveHTTP("GET", "/health", "200", 0.01)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordAuditFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qa_review_audit_failures_total 1")
}
