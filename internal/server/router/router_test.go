package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/metrics"
	"github.com/mamadbah2/haccp/internal/server/handlers"
)

type stubIngester struct{}

func (stubIngester) Ingest(_ context.Context, tenantID string, kind models.ObservationKind, _ models.ObservationInput) (models.Observation, error) {
	return models.Observation{ID: "obs-1", TenantID: tenantID, Kind: kind}, nil
}

func (stubIngester) Recent(_ context.Context, tenantID string, kind models.ObservationKind, _ int) ([]models.Observation, error) {
	return []models.Observation{{ID: "obs-1", TenantID: tenantID, Kind: kind}}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubReports struct{}

func (stubReports) Generate(_ context.Context, tenantID string, period models.Period) (models.Document, error) {
	return models.Document{TenantID: tenantID, Period: period, Content: []byte("Rapport HACCP - " + period.String() + "\n")}, nil
}

func (stubReports) Download(context.Context, string, models.Period) ([]byte, error) {
	return nil, models.ErrNotFound
}

func setupRouter(t *testing.T) (http.Handler, *observer.ObservedLogs) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.ObservationIngested("temperature", true)

	core, logs := observer.New(zapcore.InfoLevel)
	r := New(
		handlers.NewObservationHandler(stubIngester{}, nil),
		handlers.NewReportHandler(stubReports{}, nil),
		handlers.NewHealthHandler(stubPinger{}, nil),
		registry,
		zap.New(core),
	)
	return r, logs
}

func TestRoutes(t *testing.T) {
	r, logs := setupRouter(t)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/health/db", "", http.StatusOK},
		{http.MethodGet, "/observations/cleaning?limit=5", "", http.StatusOK},
		{http.MethodPost, "/observations/temperature", `{"zone_id":"frigo-1","value":2}`, http.StatusCreated},
		{http.MethodPost, "/reports/2024-01/generate", "", http.StatusOK},
		{http.MethodGet, "/reports/2024-01", "", http.StatusNotFound},
		{http.MethodGet, "/webhook", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set(handlers.TenantHeader, "resto-a")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.status, w.Code, tt.path)
	}

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, len(tests))
	assert.Equal(t, "resto-a", completed[0].ContextMap()["tenant_id"])
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `haccp_observations_ingested_total{conforme="true",kind="temperature"} 1`)
}
