package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.TaskProcessed("item-upsert", ResultSuccess)
	m.TaskProcessed("item-upsert", ResultSuccess)
	m.TaskProcessed("item-remove", ResultFailure)
	m.DocumentWritten("upsert", ResultSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksProcessed.WithLabelValues("item-upsert", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksProcessed.WithLabelValues("item-remove", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsWritten.WithLabelValues("upsert", ResultSuccess)))
}

func TestMetrics_DrainAndRebuild(t *testing.T) {
	m := NewMetrics()

	m.DrainObserved(5, 200*time.Millisecond)
	m.RebuildObserved("in-place", ResultSuccess, 2*time.Second)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.pendingTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("in-place", ResultSuccess)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TaskProcessed("item-upsert", ResultSuccess)
		m.DocumentWritten("delete", ResultFailure)
		m.DrainObserved(1, time.Second)
		m.RebuildObserved("blue-green", ResultFailure, time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.TaskProcessed("item-upsert", ResultSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sercha_indexsync_tasks_processed_total")
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, ResultSuccess, ResultLabel(nil))
	assert.Equal(t, ResultFailure, ResultLabel(errors.New("boom")))
}
