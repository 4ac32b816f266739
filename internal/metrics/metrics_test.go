package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Pair(ResultProcessed)
	m.Pair(ResultProcessed)
	m.Pair(ResultSkipped)
	m.Saved("electronics")
	m.Failed("furniture")
	m.ObserveFetch("chicago", 1500*time.Millisecond)
	m.RunFinished(time.Unix(1700000000, 0), 90*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PairsTotal.WithLabelValues(ResultProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PairsTotal.WithLabelValues(ResultSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsSaved.WithLabelValues("electronics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsFailed.WithLabelValues("furniture")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunTimestamp))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.LastRunDurationSec))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Pair(ResultSkipped)
		m.Saved("general")
		m.Failed("general")
		m.ObserveFetch("dallas", time.Second)
		m.RunFinished(time.Now(), time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Pair(ResultProcessed)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dealio_ingest_pairs_total{result="processed"} 1`)
}
