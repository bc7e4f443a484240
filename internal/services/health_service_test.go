package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
)

const (
	slogInfo = slog.LevelInfo
	slogWarn = slog.LevelWarn
)

type MockHub struct {
	mock.Mock
}

func (m *MockHub) ClientCount() int {
	return m.Called().Int(0)
}

func TestHealthService(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := &MockHub{}
	hub.On("ClientCount").Return(3)

	hs := NewHealthService("1.2.3", "2026-01-01", HealthDeps{
		Table:    testutil.SampleTable(t),
		Paths:    &config.Paths{CacheDir: t.TempDir()},
		Hub:      hub,
		Sessions: session.NewStore(time.Hour),
		Source:   "cleaners.xlsx",
	}, logger)
	ctx := context.Background()

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "10 records from cleaners.xlsx", ready.Services["dataset"].(ServiceHealth).Message)
	assert.Equal(t, "3 clients connected", ready.Services["websocket"].(ServiceHealth).Message)

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "2026-01-01", v["build_time"])
	hub.AssertExpectations(t)
}

func TestHealthServiceNotReady(t *testing.T) {
	hs := NewHealthService("dev", "", HealthDeps{
		Paths: &config.Paths{CacheDir: filepath.Join(t.TempDir(), "missing", "dir")},
	}, nil)

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "not_ready", ready.Services["dataset"].(ServiceHealth).Status)
	assert.Equal(t, "not_ready", ready.Services["exports"].(ServiceHealth).Status)
}
