package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry with its attributes flattened,
// including those bound through Logger.With.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps records in memory for assertions.
type LogCapture struct {
	store *captureStore
	bound []slog.Attr
}

type captureStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewTestLogger returns a logger backed by a fresh LogCapture.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	t.Helper()
	h := &LogCapture{store: &captureStore{}}
	return slog.New(h), h
}

func (h *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.bound)+r.NumAttrs())
	for _, a := range h.bound {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()
	return nil
}

func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.bound)+len(attrs))
	bound = append(bound, h.bound...)
	bound = append(bound, attrs...)
	return &LogCapture{store: h.store, bound: bound}
}

// WithGroup is flattened; groups are not needed by the assertions.
func (h *LogCapture) WithGroup(string) slog.Handler { return h }

// Records returns a snapshot of everything logged so far.
func (h *LogCapture) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]LogRecord, len(h.store.records))
	copy(out, h.store.records)
	return out
}

// Find returns the first record whose message contains msg.
func (h *LogCapture) Find(msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogged fails t unless a record at level contains msg.
func AssertLogged(t testing.TB, h *LogCapture, level slog.Level, msg string) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			return
		}
	}
	t.Errorf("no %s record containing %q", level, msg)
	for _, r := range h.Records() {
		t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}
