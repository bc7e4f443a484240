package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// SessionCounter reports live filter sessions.
type SessionCounter interface {
	Len() int
}

// HealthDeps are the components HealthService inspects.
type HealthDeps struct {
	Table    *dataset.Table
	Paths    *config.Paths
	Hub      ClientCounter
	Sessions SessionCounter
	Source   string
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	deps      HealthDeps
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version, buildTime string, deps HealthDeps, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		deps:      deps,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"dataset":   hs.checkDataset(),
			"exports":   hs.checkExports(),
			"websocket": hs.checkWebSocket(),
			"sessions":  hs.checkSessions(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"name":         config.AppName,
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkDataset() ServiceHealth {
	t := hs.deps.Table
	if t == nil {
		return ServiceHealth{Status: "not_ready", Message: ErrDatasetNotLoaded.Error()}
	}
	if t.Len() == 0 {
		return ServiceHealth{Status: "not_ready", Message: "dataset has no records"}
	}
	msg := fmt.Sprintf("%d records", t.Len())
	if hs.deps.Source != "" {
		msg += " from " + hs.deps.Source
	}
	return ServiceHealth{Status: "ready", Message: msg}
}

func (hs *HealthService) checkExports() ServiceHealth {
	if hs.deps.Paths == nil {
		return ServiceHealth{Status: "ready", Message: "exports are streamed"}
	}
	dir := hs.deps.Paths.CacheDir
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to cache directory: %v", err),
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return ServiceHealth{Status: "ready", Message: "cache directory is writable"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.deps.Hub == nil {
		return ServiceHealth{Status: "ready", Message: "websocket disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.deps.Hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkSessions() ServiceHealth {
	if hs.deps.Sessions == nil {
		return ServiceHealth{Status: "ready"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d active sessions", hs.deps.Sessions.Len())}
}
