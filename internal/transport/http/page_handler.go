package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/services"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
)

//go:embed templates/selector.html
var templateFS embed.FS

// presentField lists the multi-selects rendered in a form, so an empty
// selection can be told apart from a field that was not submitted.
const presentField = "_fields"

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/selector.html"))

// PageHandler serves the server-rendered selector page and its form posts.
type PageHandler struct {
	service      SelectorServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler creates a new page handler
func NewPageHandler(service SelectorServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PageHandler {
	return &PageHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "page_handler")),
		errorHandler: errorHandler,
	}
}

type optionItem struct {
	Value    string
	Count    int
	Selected bool
}

type categoricalWidget struct {
	Key     string
	Label   string
	Size    int
	Options []optionItem
}

type numericWidget struct {
	Key      string
	Label    string
	Min, Max string
	Lo, Hi   string
	Disabled bool
}

type pageData struct {
	PresentField string
	Categorical  []categoricalWidget
	Numeric      []numericWidget
	Columns      []string
	Rows         []ViewRow
	Count        int
	Total        int
	Empty        bool
	EmptyMessage string
	Summary      []string
	SummaryJSON  string
	Error        string
}

// Index handles GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "")
}

// SubmitFilters handles POST /filters. Every widget value is reconciled
// against the session state and the browser is redirected back to the page.
func (h *PageHandler) SubmitFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	sub, err := ParseSubmission(r.PostForm)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, changed, err := h.service.Reconcile(ctx, session.IDFromContext(ctx), sub); err != nil {
		h.fail(w, r, err)
		return
	} else if len(changed) > 0 {
		h.logger.DebugContext(ctx, "form applied", slog.Any("fields", changed))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ClearFilters handles POST /filters/clear
func (h *PageHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.service.Clear(ctx, session.IDFromContext(ctx)); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail re-renders the page with the problem detail as an inline message.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	h.logger.WarnContext(r.Context(), "form rejected",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status))
	h.render(w, r, problem.Status, problem.Detail)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, message string) {
	ctx := r.Context()
	view, st, err := h.service.View(ctx, session.IDFromContext(ctx))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := buildPage(h.service.Options(ctx), st, view)
	data.Error = message

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("render page: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func buildPage(opts []services.FieldOption, st filter.State, view filter.View) pageData {
	data := pageData{
		PresentField: presentField,
		Count:        view.Len(),
		Empty:        view.Empty(),
		EmptyMessage: NoResultsMessage,
		Rows:         make([]ViewRow, 0, view.Len()),
		Summary:      []string{},
	}
	if view.Table != nil {
		data.Columns = view.Columns()
		data.Total = view.Table.Len()
		if s := st.Summary(view.Table); s != nil {
			data.Summary = s
		}
	}
	for _, row := range view.Rows {
		data.Rows = append(data.Rows, ViewRow{Index: row.Index, Cells: view.RowCells(row)})
	}
	summary, _ := json.Marshal(data.Summary)
	data.SummaryJSON = string(summary)

	for _, o := range opts {
		if o.Kind == "numeric" {
			nw := numericWidget{Key: o.Key, Label: o.Label, Disabled: o.Min == nil || o.Max == nil}
			if !nw.Disabled {
				nw.Min, nw.Max = formatFloat(*o.Min), formatFloat(*o.Max)
				nw.Lo, nw.Hi = nw.Min, nw.Max
			}
			if r, ok := st.Ranges[o.Key]; ok && !nw.Disabled {
				nw.Lo, nw.Hi = formatFloat(r.Min), formatFloat(r.Max)
			}
			data.Numeric = append(data.Numeric, nw)
			continue
		}

		selected := make(map[string]bool, len(st.Selections[o.Key]))
		for _, v := range st.Selections[o.Key] {
			selected[v] = true
		}
		cw := categoricalWidget{Key: o.Key, Label: o.Label, Size: min(max(len(o.Counts), 2), 6)}
		for _, c := range o.Counts {
			cw.Options = append(cw.Options, optionItem{Value: c.Value, Count: c.Count, Selected: selected[c.Value]})
		}
		data.Categorical = append(data.Categorical, cw)
	}
	return data
}

// ParseSubmission turns a posted selector form into a filter submission.
// Multi-selects named in the presence list are submitted even when nothing
// is selected; a numeric field is submitted when both bounds are filled in.
func ParseSubmission(form url.Values) (filter.Submission, error) {
	sub := filter.Submission{
		Selections: make(map[string][]string),
		Ranges:     make(map[string]filter.Range),
	}

	for _, key := range form[presentField] {
		if _, ok := filter.Lookup(key); !ok {
			return sub, fmt.Errorf("%w: %q", filter.ErrUnknownField, key)
		}
		values := form[key]
		if values == nil {
			values = []string{}
		}
		sub.Selections[key] = values
	}

	for _, f := range filter.NumericFields() {
		lo := strings.TrimSpace(form.Get(f.Key + "_min"))
		hi := strings.TrimSpace(form.Get(f.Key + "_max"))
		if lo == "" || hi == "" {
			continue
		}
		loV, err := strconv.ParseFloat(lo, 64)
		if err != nil || math.IsNaN(loV) {
			return sub, fmt.Errorf("%w: %s minimum %q is not a number", filter.ErrInvalidRange, f.Column, lo)
		}
		hiV, err := strconv.ParseFloat(hi, 64)
		if err != nil || math.IsNaN(hiV) {
			return sub, fmt.Errorf("%w: %s maximum %q is not a number", filter.ErrInvalidRange, f.Column, hi)
		}
		sub.Ranges[f.Key] = filter.Range{Min: loV, Max: hiV}
	}
	return sub, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
