package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/services"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
)

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthHandler(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		method     string
		status     services.HealthStatus
		call       func(h *HealthHandler) http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "health",
			method:     "HealthCheck",
			status:     services.HealthStatus{Status: "ok", Timestamp: now, Version: "1.0.0"},
			call:       func(h *HealthHandler) http.HandlerFunc { return h.HealthCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name:       "ready",
			method:     "ReadinessCheck",
			status:     services.HealthStatus{Status: "ready", Timestamp: now},
			call:       func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ready"`,
		},
		{
			name:   "not ready",
			method: "ReadinessCheck",
			status: services.HealthStatus{Status: "not_ready", Timestamp: now, Services: map[string]interface{}{
				"dataset": services.ServiceHealth{Status: "not_ready", Message: "no records"},
			}},
			call:       func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"no records"`,
		},
		{
			name:       "live",
			method:     "LivenessCheck",
			status:     services.HealthStatus{Status: "alive", Timestamp: now},
			call:       func(h *HealthHandler) http.HandlerFunc { return h.LivenessCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"alive"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockHealthService{}
			svc.On(tt.method).Return(tt.status)
			logger, _ := testutil.NewTestLogger(t)
			h := NewHealthHandler(svc, logger)

			rec := httptest.NewRecorder()
			tt.call(h)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	svc := &MockHealthService{}
	svc.On("Version").Return(map[string]interface{}{"version": "1.2.3"})
	logger, _ := testutil.NewTestLogger(t)

	rec := httptest.NewRecorder()
	NewHealthHandler(svc, logger).Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.JSONEq(t, `{"version":"1.2.3"}`, rec.Body.String())
}

func TestMetricsHandler(t *testing.T) {
	t.Run("disabled exporter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewMetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apierrors.ProblemContentType, rec.Header().Get("Content-Type"))
	})

	t.Run("delegates to prometheus", func(t *testing.T) {
		prom := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# HELP selector_exports_total\n")
		})
		rec := httptest.NewRecorder()
		NewMetricsHandler(prom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "selector_exports_total")
	})
}

func TestClientLogHandler(t *testing.T) {
	r, logs := newRouter(t, newService(t))

	rec := do(t, r, http.MethodPost, "/api/client-log", `{"level":"warn","message":"live update connection failed","source":"selector.html"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	testutil.AssertLogged(t, logs, slog.LevelWarn, "live update connection failed")

	record, ok := logs.Find("live update connection failed")
	require.True(t, ok)
	assert.Equal(t, testSession, record.Attrs["session_id"])

	rec = do(t, r, http.MethodPost, "/api/client-log", `{"level":"fatal","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/client-log", `{"level":"info"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
