package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/metrics"
	"github.com/dealio/dealio/internal/store"
	"github.com/dealio/dealio/pkg/listing"
)

type fakeStore struct {
	deals    []listing.Listing
	err      error
	healthy  bool
	calls    int
	limit    int
	minScore float64
}

func (f *fakeStore) TopDeals(_ context.Context, limit int, minScore float64) ([]listing.Listing, error) {
	f.calls++
	f.limit, f.minScore = limit, minScore
	if f.err != nil {
		return nil, f.err
	}
	if err := store.ValidateQuery(limit, minScore); err != nil {
		return nil, err
	}
	return f.deals, nil
}

func (f *fakeStore) Ping(context.Context) bool { return f.healthy }

func newTestServer(fs *fakeStore) (*Server, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	srv := New(fs, logger.NewNop(), Options{Gatherer: reg})
	srv.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return srv, reg
}

func get(t *testing.T, srv *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") != "" && rec.Code != http.StatusNoContent {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestRoot(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{})
	rec, body := get(t, srv, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dealio API is live", body["message"])
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body["endpoints"], "/deals")
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{healthy: true})
	rec, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["timestamp"])

	srv, _ = newTestServer(&fakeStore{healthy: false})
	rec, body = get(t, srv, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Service unhealthy", body["error"])
}

func TestTestDB(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{healthy: true})
	rec, body := get(t, srv, "/test-db")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	srv, _ = newTestServer(&fakeStore{healthy: false})
	rec, body = get(t, srv, "/test-db")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Database connection failed", body["message"])
}

func TestDealsDefaults(t *testing.T) {
	fs := &fakeStore{deals: []listing.Listing{
		{ID: "test_3", Title: "Herman Miller Office Chair", Price: 400, Category: listing.Furniture, DealScore: 92},
	}}
	srv, _ := newTestServer(fs)

	rec, body := get(t, srv, "/deals")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 20, fs.limit)
	assert.Equal(t, 0.0, fs.minScore)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, map[string]any{"limit": 20.0, "min_score": 0.0}, body["filters"])

	data := body["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "test_3", first["id"])
	assert.Equal(t, 92.0, first["deal_score"])
	assert.Equal(t, "furniture", first["category"])
}

func TestDealsPassesFilters(t *testing.T) {
	fs := &fakeStore{}
	srv, _ := newTestServer(fs)

	rec, body := get(t, srv, "/deals?limit=5&min_score=80")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, fs.limit)
	assert.Equal(t, 80.0, fs.minScore)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, 0.0, body["count"])
}

func TestDealsRejectsInvalidParams(t *testing.T) {
	for _, target := range []string{
		"/deals?limit=0",
		"/deals?limit=101",
		"/deals?limit=abc",
		"/deals?min_score=-1",
		"/deals?min_score=100.5",
		"/deals?min_score=NaN",
	} {
		fs := &fakeStore{}
		srv, _ := newTestServer(fs)

		rec, body := get(t, srv, target)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)
		assert.Equal(t, false, body["success"], target)
		assert.Equal(t, "Invalid query parameters", body["error"], target)
	}
}

func TestDealsStoreFailure(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{err: errors.New("relation \"listings\" does not exist")})

	rec, body := get(t, srv, "/deals")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to fetch deals", body["error"])
	assert.Contains(t, body["detail"], "does not exist")
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{})
	rec, body := get(t, srv, "/deals/categories")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"electronics", "furniture", "general", "automotive"}, body["categories"])
}

func TestPanicBecomesJSON500(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{})
	srv.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec, body := get(t, srv, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "kaboom", body["detail"])

	rec, _ = get(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(&fakeStore{})

	rec, _ := get(t, srv, "/")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	pre := httptest.NewRecorder()
	srv.Handler().ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/deals", nil))
	assert.Equal(t, http.StatusNoContent, pre.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, reg := newTestServer(&fakeStore{})
	metrics.New(reg).Pair(metrics.ResultProcessed)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dealio_ingest_pairs_total")
}
