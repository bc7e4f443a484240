package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

type mode int

const (
	modeFields mode = iota
	modePicker
	modeResults
)

// rangeSteps is how many key presses move a bound across the whole column.
const rangeSteps = 20

const maxColumnWidth = 24

// Options configures the selector screen.
type Options struct {
	Table   *dataset.Table
	Policy  filter.RangePolicy
	Exports *exporter.FileWriter
	Logger  *slog.Logger
}

type fieldItem struct {
	field   filter.Field
	summary string
}

func (i fieldItem) Title() string       { return i.field.Label }
func (i fieldItem) Description() string { return i.summary }
func (i fieldItem) FilterValue() string { return i.field.Label }

type valueItem struct {
	value    string
	count    int
	selected bool
}

func (i valueItem) Title() string {
	box := "[ ]"
	if i.selected {
		box = "[x]"
	}
	return box + " " + i.value
}
func (i valueItem) Description() string { return fmt.Sprintf("%d records", i.count) }
func (i valueItem) FilterValue() string { return i.value }

// exportDoneMsg reports a finished file export.
type exportDoneMsg struct {
	format exporter.Format
	path   string
	err    error
}

// Model is the bubbletea model of the selector screen: the filter list on
// the left, the filtered table on the right.
type Model struct {
	table   *dataset.Table
	policy  filter.RangePolicy
	exports *exporter.FileWriter
	logger  *slog.Logger

	state filter.State
	view  filter.View

	fields  list.Model
	values  list.Model
	results table.Model
	help    help.Model
	picking filter.Field

	mode      mode
	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel builds the screen with every filter at its default.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = filter.RangesAlways
	}

	fields := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	fields.Title = "Filters"
	fields.SetShowHelp(false)
	fields.SetShowStatusBar(false)
	fields.SetFilteringEnabled(false)
	fields.Styles.Title = titleStyle
	fields.KeyMap.Quit.SetEnabled(false)

	values := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	values.SetShowHelp(false)
	values.SetFilteringEnabled(false)
	values.Styles.Title = titleStyle
	values.KeyMap.Quit.SetEnabled(false)

	m := &Model{
		table:   opts.Table,
		policy:  opts.Policy,
		exports: opts.Exports,
		logger:  logger,
		state:   filter.NewState(opts.Table),
		fields:  fields,
		values:  values,
		help:    help.New(),
	}
	m.results = table.New(table.WithColumns(m.columns()), table.WithFocused(false))
	m.setSize(120, 40)
	m.refresh()
	return m
}

// State returns the current filter state.
func (m *Model) State() filter.State { return m.state }

// FilteredView returns the rows currently shown.
func (m *Model) FilteredView() filter.View { return m.view }

func (m *Model) Init() tea.Cmd {
	m.logger.Info("selector screen opened", slog.Int("records", m.table.Len()))
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil
	case exportDoneMsg:
		m.finishExport(msg)
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, Keys.Quit) && !(m.mode == modePicker && msg.String() == "q") {
			return m, tea.Quit
		}
		switch m.mode {
		case modePicker:
			return m.handlePickerKey(msg)
		case modeResults:
			return m.handleResultsKey(msg)
		default:
			return m.handleFieldsKey(msg)
		}
	}
	return m, nil
}

func (m *Model) handleFieldsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Open):
		f := m.selectedField()
		if f.Numeric() {
			m.setStatus("Use [ ] and { } to move the bounds of "+f.Column, false)
			return m, nil
		}
		return m, m.openPicker(f)
	case key.Matches(msg, Keys.Focus):
		m.mode = modeResults
		m.results.Focus()
		return m, nil
	case key.Matches(msg, Keys.Clear):
		m.state, _ = filter.Clear(m.table)
		m.refresh()
		m.logger.Info("filters cleared")
		m.setStatus("Filters cleared", false)
		return m, nil
	case key.Matches(msg, Keys.ExportCSV):
		return m, m.exportCmd(exporter.FormatCSV)
	case key.Matches(msg, Keys.ExportPNG):
		return m, m.exportCmd(exporter.FormatPNG)
	case key.Matches(msg, Keys.LowerDown):
		m.adjustRange(true, -1)
		return m, nil
	case key.Matches(msg, Keys.LowerUp):
		m.adjustRange(true, 1)
		return m, nil
	case key.Matches(msg, Keys.UpperDown):
		m.adjustRange(false, -1)
		return m, nil
	case key.Matches(msg, Keys.UpperUp):
		m.adjustRange(false, 1)
		return m, nil
	}

	var cmd tea.Cmd
	m.fields, cmd = m.fields.Update(msg)
	return m, cmd
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Back):
		m.mode = modeFields
		return m, nil
	case key.Matches(msg, Keys.Toggle):
		item, ok := m.values.SelectedItem().(valueItem)
		if !ok {
			return m, nil
		}
		item.selected = !item.selected
		return m, m.values.SetItem(m.values.Index(), item)
	case key.Matches(msg, Keys.Open):
		m.applyPicker()
		return m, nil
	}

	var cmd tea.Cmd
	m.values, cmd = m.values.Update(msg)
	return m, cmd
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.Focus) || key.Matches(msg, Keys.Back) {
		m.mode = modeFields
		m.results.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) selectedField() filter.Field {
	if item, ok := m.fields.SelectedItem().(fieldItem); ok {
		return item.field
	}
	return filter.Fields[0]
}

func (m *Model) openPicker(f filter.Field) tea.Cmd {
	selected := make(map[string]bool)
	for _, v := range m.state.Selections[f.Key] {
		selected[v] = true
	}
	counts := make(map[string]int)
	for _, vc := range m.table.Counts(f.Column) {
		counts[vc.Value] = vc.Count
	}

	distinct := m.table.DistinctValues(f.Column)
	items := make([]list.Item, 0, len(distinct))
	for _, v := range distinct {
		items = append(items, valueItem{value: v, count: counts[v], selected: selected[v]})
	}

	m.picking = f
	m.mode = modePicker
	m.values.Title = f.Label
	m.values.ResetSelected()
	return m.values.SetItems(items)
}

func (m *Model) applyPicker() {
	var chosen []string
	for _, it := range m.values.Items() {
		if v, ok := it.(valueItem); ok && v.selected {
			chosen = append(chosen, v.value)
		}
	}
	m.mode = modeFields

	next, changed, err := filter.ApplySelection(m.table, m.state, m.picking.Key, chosen)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if !changed {
		m.setStatus("No change to "+m.picking.Column, false)
		return
	}
	m.state = next
	m.refresh()
	m.logger.Info("filters changed",
		slog.String("field", m.picking.Key),
		slog.Any("values", chosen),
		slog.Int("rows", m.view.Len()))
	m.setStatus(fmt.Sprintf("%s updated, %d records match", m.picking.Column, m.view.Len()), false)
}

// adjustRange moves one bound of the selected numeric field by a twentieth
// of the column's extent.
func (m *Model) adjustRange(lower bool, sign float64) {
	f := m.selectedField()
	if !f.Numeric() {
		m.setStatus(fmt.Sprintf("%s: %v", f.Column, filter.ErrNotNumeric), true)
		return
	}
	lo, hi, ok := m.table.Extremes(f.Column)
	if !ok {
		m.setStatus(fmt.Sprintf("%s: %v", f.Column, filter.ErrNoBounds), true)
		return
	}
	step := (hi - lo) / rangeSteps
	if step == 0 {
		step = 1
	}

	r := m.state.Ranges[f.Key]
	if lower {
		r.Min = roundBound(r.Min + sign*step)
	} else {
		r.Max = roundBound(r.Max + sign*step)
	}

	next, changed, err := filter.ApplyRange(m.table, m.state, f.Key, r.Min, r.Max)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if changed {
		m.state = next
		m.refresh()
		m.logger.Info("filters changed",
			slog.String("field", f.Key),
			slog.String("range", next.Ranges[f.Key].String()),
			slog.Int("rows", m.view.Len()))
	}
	m.setStatus(fmt.Sprintf("%s: %s", f.Column, m.state.Ranges[f.Key]), false)
}

func roundBound(v float64) float64 {
	return math.Round(v*100) / 100
}

func (m *Model) exportCmd(format exporter.Format) tea.Cmd {
	if m.exports == nil {
		m.setStatus("exports are not configured", true)
		return nil
	}
	view, fw := m.view, m.exports
	return func() tea.Msg {
		path, err := fw.WriteFile(context.Background(), view, format)
		return exportDoneMsg{format: format, path: path, err: err}
	}
}

func (m *Model) finishExport(msg exportDoneMsg) {
	switch {
	case errors.Is(msg.err, exporter.ErrEmptyView):
		m.logger.Info("image export skipped", slog.String("reason", msg.err.Error()))
		m.setStatus("Image skipped: "+filter.NoResultsMessage, true)
	case errors.Is(msg.err, exporter.ErrTooManyRows):
		m.logger.Warn("image export skipped", slog.String("reason", msg.err.Error()))
		m.setStatus("Image skipped: too many rows, narrow the filters", true)
	case msg.err != nil:
		m.logger.Error("export failed",
			slog.String("format", string(msg.format)),
			slog.String("error", msg.err.Error()))
		m.setStatus(msg.err.Error(), true)
	default:
		m.setStatus("Saved "+msg.path, false)
	}
}

// refresh recomputes the view and every widget that mirrors the state.
func (m *Model) refresh() {
	m.view = filter.ComputeView(m.table, m.state, m.policy)

	items := make([]list.Item, 0, len(filter.Fields))
	for _, f := range filter.Fields {
		items = append(items, fieldItem{field: f, summary: m.describe(f)})
	}
	m.fields.SetItems(items)

	rows := make([]table.Row, 0, m.view.Len())
	for _, r := range m.view.Rows {
		rows = append(rows, append(table.Row{strconv.Itoa(r.Index)}, m.view.RowCells(r)...))
	}
	m.results.SetRows(rows)
	m.results.GotoTop()
}

func (m *Model) describe(f filter.Field) string {
	if f.Numeric() {
		r, ok := m.state.Ranges[f.Key]
		if !ok {
			return "no values"
		}
		return r.String()
	}
	if sel := m.state.Selections[f.Key]; len(sel) > 0 {
		return strings.Join(sel, ", ")
	}
	return "any"
}

func (m *Model) columns() []table.Column {
	names := m.table.ColumnNames()
	widths := make([]int, len(names))
	for i, name := range names {
		widths[i] = lipgloss.Width(name)
	}
	all := filter.View{Table: m.table}
	for _, rec := range m.table.Records() {
		for i, cell := range all.RowCells(filter.Row{Record: rec}) {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cols := make([]table.Column, 0, len(names)+1)
	cols = append(cols, table.Column{Title: "#", Width: 4})
	for i, name := range names {
		cols = append(cols, table.Column{Title: name, Width: min(widths[i], maxColumnWidth)})
	}
	return cols
}

func (m *Model) setSize(width, height int) {
	m.width, m.height = width, height
	paneWidth := max(width/4, 24)
	paneHeight := max(height-8, 6)
	m.fields.SetSize(paneWidth, paneHeight)
	m.values.SetSize(paneWidth, paneHeight)
	m.results.SetWidth(max(width-paneWidth-10, 20))
	m.results.SetHeight(max(paneHeight-2, 3))
	m.help.Width = width
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status, m.statusErr = text, isErr
}

func (m *Model) View() string {
	left := m.fields.View()
	if m.mode == modePicker {
		left = m.values.View()
	}
	leftStyle, rightStyle := activePaneStyle, paneStyle
	if m.mode == modeResults {
		leftStyle, rightStyle = paneStyle, activePaneStyle
	}

	header := countStyle.Render(fmt.Sprintf("%d of %d records", m.view.Len(), m.table.Len()))
	body := m.results.View()
	if m.view.Empty() {
		body = emptyStyle.Render(filter.NoResultsMessage)
	}
	right := lipgloss.JoinVertical(lipgloss.Left, header, body)

	status := statusStyle.Render(m.status)
	if m.statusErr {
		status = errorStyle.Render(m.status)
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(left), rightStyle.Render(right)),
		status,
		m.help.View(Keys),
	))
}

// Run shows the selector screen until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
