package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
	ws "github.com/NIKPRIN6598/Cleaner-Selector/internal/websocket"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, sessionID string, ev ws.Event) {
	m.Called(ctx, sessionID, ev)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, view filter.View, dst io.Writer) error {
	args := m.Called(ctx, view)
	if args.Error(0) == nil {
		_, _ = dst.Write([]byte("png"))
	}
	return args.Error(0)
}

type fixture struct {
	svc      *SelectorService
	table    *dataset.Table
	store    *session.Store
	notifier *MockNotifier
	logs     *testutil.LogCapture
}

func newFixture(t *testing.T, opts SelectorOptions) fixture {
	t.Helper()
	table := testutil.SampleTable(t)
	store := session.NewStore(time.Hour)
	notifier := &MockNotifier{}
	logger, logs := testutil.NewTestLogger(t)

	opts.Notifier = notifier
	opts.Logger = logger
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	return fixture{
		svc:      NewSelectorService(table, store, opts),
		table:    table,
		store:    store,
		notifier: notifier,
		logs:     logs,
	}
}

func viewChanged(t *testing.T, ev ws.Event) ws.ViewChanged {
	t.Helper()
	require.Equal(t, ws.TypeViewChanged, ev.Type)
	vc, ok := ev.Data.(ws.ViewChanged)
	require.True(t, ok)
	return vc
}

func TestOptions(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	opts := f.svc.Options(context.Background())
	require.Len(t, opts, len(filter.Fields))

	assert.Equal(t, "region", opts[0].Key)
	assert.Equal(t, "Select Region", opts[0].Label)
	assert.Equal(t, "categorical", opts[0].Kind)
	assert.Equal(t, []string{"US", "DE"}, opts[0].Values)
	assert.Len(t, opts[0].Counts, 2)

	conc := opts[7]
	assert.Equal(t, "concentration", conc.Key)
	assert.Equal(t, "numeric", conc.Kind)
	require.NotNil(t, conc.Min)
	assert.Equal(t, 1.5, *conc.Min)
	assert.Equal(t, 20.0, *conc.Max)
}

func TestStateRequiresSession(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	_, err := f.svc.State(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, _, err = f.svc.ApplySelection(context.Background(), "", "region", nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestApplySelectionNotifiesOnChange(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()

	f.notifier.On("Notify", mock.Anything, "s1", mock.Anything).Once()

	st, changed, err := f.svc.ApplySelection(ctx, "s1", "region", []string{"DE"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"DE"}, st.Selections["region"])

	st, changed, err = f.svc.ApplySelection(ctx, "s1", "region", []string{"DE", " DE "})
	require.NoError(t, err)
	assert.False(t, changed, "same selection is a no-op")
	assert.Equal(t, []string{"DE"}, st.Selections["region"])

	f.notifier.AssertExpectations(t)
	vc := viewChanged(t, f.notifier.Calls[0].Arguments.Get(2).(ws.Event))
	assert.Equal(t, []string{"region"}, vc.Fields)
	assert.Equal(t, 5, vc.Rows)
	assert.Equal(t, []string{"Country: DE"}, vc.Summary)

	testutil.AssertLogged(t, f.logs, slogInfo, "filters changed")
}

func TestApplySelectionRejectsUnknown(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()

	_, _, err := f.svc.ApplySelection(ctx, "s1", "colour", []string{"red"})
	assert.ErrorIs(t, err, filter.ErrUnknownField)

	_, _, err = f.svc.ApplySelection(ctx, "s1", "region", []string{"Mars"})
	assert.ErrorIs(t, err, filter.ErrUnknownValue)

	st, err := f.svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.Equal(filter.NewState(f.table)))
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	testutil.AssertLogged(t, f.logs, slogWarn, "filter rejected")
}

func TestApplyRangeAndView(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, "s1", mock.Anything)

	_, changed, err := f.svc.ApplyRange(ctx, "s1", "concentration", 5, 10)
	require.NoError(t, err)
	assert.True(t, changed)

	view, st, err := f.svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, filter.Range{Min: 5, Max: 10}, st.Ranges["concentration"])
	require.Equal(t, 3, view.Len())
	for i, row := range view.Rows {
		assert.Equal(t, i+1, row.Index)
	}

	_, _, err = f.svc.ApplyRange(ctx, "s1", "concentration", 10, 5)
	assert.ErrorIs(t, err, filter.ErrInvalidRange)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything)

	_, _, err := f.svc.ApplySelection(ctx, "a", "pH", []string{"Acidic"})
	require.NoError(t, err)

	va, _, err := f.svc.View(ctx, "a")
	require.NoError(t, err)
	vb, _, err := f.svc.View(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, va.Len())
	assert.Equal(t, f.table.Len(), vb.Len())
	assert.Equal(t, 2, f.store.Len())
}

func TestReconcile(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, "s1", mock.Anything).Once()

	st, keys, err := f.svc.Reconcile(ctx, "s1", filter.Submission{
		Selections: map[string][]string{"region": {"US"}, "pH": {}},
		Ranges:     map[string]filter.Range{"temp_min": {Min: 20, Max: 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "temp_min"}, keys)
	assert.Equal(t, []string{"US"}, st.Selections["region"])

	_, keys, err = f.svc.Reconcile(ctx, "s1", filter.Submission{
		Selections: map[string][]string{"region": {"US"}},
	})
	require.NoError(t, err)
	assert.Empty(t, keys)
	f.notifier.AssertExpectations(t)

	_, _, err = f.svc.Reconcile(ctx, "s1", filter.Submission{
		Ranges: map[string]filter.Range{"region": {Min: 1, Max: 2}},
	})
	assert.ErrorIs(t, err, filter.ErrNotCategorical)
}

func TestClearAlwaysNotifies(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, "s1", mock.Anything)

	_, _, err := f.svc.ApplySelection(ctx, "s1", "region", []string{"US"})
	require.NoError(t, err)

	st, err := f.svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.Equal(filter.NewState(f.table)))

	_, err = f.svc.Clear(ctx, "s1")
	require.NoError(t, err)

	f.notifier.AssertNumberOfCalls(t, "Notify", 3)
	vc := viewChanged(t, f.notifier.Calls[2].Arguments.Get(2).(ws.Event))
	assert.True(t, vc.Cleared)
	assert.Equal(t, f.table.Len(), vc.Rows)

	view, _, err := f.svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, f.table.Len(), view.Len(), "rows with missing values come back after clear")
}

func TestRangePolicyWithCategorical(t *testing.T) {
	f := newFixture(t, SelectorOptions{Policy: filter.RangesWithCategorical})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything)

	_, _, err := f.svc.ApplyRange(ctx, "s1", "concentration", 5, 10)
	require.NoError(t, err)
	view, _, err := f.svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, f.table.Len(), view.Len(), "ranges wait for a categorical selection")

	_, _, err = f.svc.ApplySelection(ctx, "s1", "region", []string{"DE"})
	require.NoError(t, err)
	view, _, err = f.svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Len())
}

func TestExportCSVAndXLSX(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything)

	_, _, err := f.svc.ApplySelection(ctx, "s1", "region", []string{"US"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, "s1", &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 6)

	buf.Reset()
	require.NoError(t, f.svc.ExportXLSX(ctx, "s1", &buf))
	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestExportImage(t *testing.T) {
	renderer := &MockRenderer{}
	dir := t.TempDir()
	f := newFixture(t, SelectorOptions{Renderer: renderer, TempDir: dir})
	ctx := context.Background()

	renderer.On("Render", mock.Anything, mock.MatchedBy(func(v filter.View) bool { return v.Len() == 10 })).Return(nil).Once()

	path, cleanup, err := f.svc.ExportImage(ctx, "s1")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, dir, filepath.Dir(path))
	cleanup()
	assert.NoFileExists(t, path)
	renderer.AssertExpectations(t)

	renderer.On("Render", mock.Anything, mock.Anything).Return(errors.New("no fonts")).Once()
	_, cleanup, err = f.svc.ExportImage(ctx, "s1")
	assert.Error(t, err)
	cleanup()
	testutil.AssertLogged(t, f.logs, slogWarn, "export failed")
}

func TestExportImageEmptyView(t *testing.T) {
	f := newFixture(t, SelectorOptions{})
	ctx := context.Background()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything)

	_, _, err := f.svc.Reconcile(ctx, "s1", filter.Submission{
		Selections: map[string][]string{"region": {"US"}, "application": {"Glass"}},
	})
	require.NoError(t, err)

	path, cleanup, err := f.svc.ExportImage(ctx, "s1")
	assert.ErrorIs(t, err, exporter.ErrEmptyView)
	assert.Empty(t, path)
	cleanup()
}
