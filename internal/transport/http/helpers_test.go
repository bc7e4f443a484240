package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	mw "github.com/NIKPRIN6598/Cleaner-Selector/internal/middleware"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/services"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
)

const testSession = "session-1"

// stubRenderer writes a fixed payload instead of drawing the table.
type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, _ filter.View, dst io.Writer) error {
	_, err := io.WriteString(dst, "\x89PNG-stub")
	return err
}

// MockSelectorService is a mock implementation of SelectorServiceInterface
type MockSelectorService struct {
	mock.Mock
}

func (m *MockSelectorService) Options(ctx context.Context) []services.FieldOption {
	args := m.Called()
	return args.Get(0).([]services.FieldOption)
}

func (m *MockSelectorService) State(ctx context.Context, sid string) (filter.State, error) {
	args := m.Called(sid)
	return args.Get(0).(filter.State), args.Error(1)
}

func (m *MockSelectorService) ApplySelection(ctx context.Context, sid, field string, values []string) (filter.State, bool, error) {
	args := m.Called(sid, field, values)
	return args.Get(0).(filter.State), args.Bool(1), args.Error(2)
}

func (m *MockSelectorService) ApplyRange(ctx context.Context, sid, field string, lo, hi float64) (filter.State, bool, error) {
	args := m.Called(sid, field, lo, hi)
	return args.Get(0).(filter.State), args.Bool(1), args.Error(2)
}

func (m *MockSelectorService) Reconcile(ctx context.Context, sid string, sub filter.Submission) (filter.State, []string, error) {
	args := m.Called(sid, sub)
	var fields []string
	if v := args.Get(1); v != nil {
		fields = v.([]string)
	}
	return args.Get(0).(filter.State), fields, args.Error(2)
}

func (m *MockSelectorService) Clear(ctx context.Context, sid string) (filter.State, error) {
	args := m.Called(sid)
	return args.Get(0).(filter.State), args.Error(1)
}

func (m *MockSelectorService) View(ctx context.Context, sid string) (filter.View, filter.State, error) {
	args := m.Called(sid)
	return args.Get(0).(filter.View), args.Get(1).(filter.State), args.Error(2)
}

func (m *MockSelectorService) ExportCSV(ctx context.Context, sid string, w io.Writer) error {
	return m.Called(sid).Error(0)
}

func (m *MockSelectorService) ExportXLSX(ctx context.Context, sid string, w io.Writer) error {
	return m.Called(sid).Error(0)
}

func (m *MockSelectorService) ExportImage(ctx context.Context, sid string) (string, func(), error) {
	args := m.Called(sid)
	return args.String(0), func() {}, args.Error(1)
}

// withSession pins every request to one session so state survives between
// requests of a test.
func withSession(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), id)))
		})
	}
}

func newRouter(t *testing.T, svc SelectorServiceInterface) (chi.Router, *testutil.LogCapture) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	eh := apierrors.NewErrorHandler(logger, false)
	validator := mw.NewValidator(logger)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(withSession(testSession))

	page := NewPageHandler(svc, logger, eh)
	r.Get("/", page.Index)
	r.Post("/filters", page.SubmitFilters)
	r.Post("/filters/clear", page.ClearFilters)
	r.Mount("/api/selector", NewSelectorHandler(svc, validator, logger, eh).Routes())
	r.Post("/api/client-log", NewClientLogHandler(validator, logger, eh).Handle)
	return r, logs
}

// newService builds a real selector service over the sample table.
func newService(t *testing.T) *services.SelectorService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return services.NewSelectorService(testutil.SampleTable(t), session.NewStore(time.Hour), services.SelectorOptions{
		Renderer: stubRenderer{},
		TempDir:  t.TempDir(),
		Logger:   logger,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

type problem struct {
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}
