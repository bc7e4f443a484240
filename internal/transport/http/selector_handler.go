package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	mw "github.com/NIKPRIN6598/Cleaner-Selector/internal/middleware"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
)

// NoResultsMessage is shown in place of an empty table.
const NoResultsMessage = filter.NoResultsMessage

// SelectorHandler serves the JSON filter API and the export downloads.
type SelectorHandler struct {
	service      SelectorServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSelectorHandler creates a new selector handler
func NewSelectorHandler(service SelectorServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SelectorHandler {
	return &SelectorHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "selector_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the selector API routes
func (h *SelectorHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(mw.ContentTypeValidator("application/json"))

		r.Get("/options", h.GetOptions)
		r.Get("/state", h.GetState)
		r.Get("/view", h.GetView)
		r.Put("/selections/{field}", h.PutSelection)
		r.Put("/ranges/{field}", h.PutRange)
		r.Post("/reconcile", h.PostReconcile)
		r.Post("/clear", h.PostClear)
	})

	r.Get("/export/{format}", h.Export)
	return r
}

// SelectionRequest is the body of PUT /selections/{field}.
type SelectionRequest struct {
	Values []string `json:"values" validate:"max=1000"`
}

// RangeRequest is the body of PUT /ranges/{field}.
type RangeRequest struct {
	Min *float64 `json:"min" validate:"required"`
	Max *float64 `json:"max" validate:"required"`
}

// ChangeResponse reports the outcome of a filter update.
type ChangeResponse struct {
	Changed bool         `json:"changed"`
	Fields  []string     `json:"fields,omitempty"`
	State   filter.State `json:"state"`
}

// ViewRow is one numbered table row.
type ViewRow struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

// ViewResponse is the filtered table.
type ViewResponse struct {
	Columns []string  `json:"columns"`
	Rows    []ViewRow `json:"rows"`
	Count   int       `json:"count"`
	Message string    `json:"message,omitempty"`
}

func newViewResponse(view filter.View) ViewResponse {
	resp := ViewResponse{
		Columns: view.Columns(),
		Rows:    make([]ViewRow, 0, view.Len()),
		Count:   view.Len(),
	}
	for _, row := range view.Rows {
		resp.Rows = append(resp.Rows, ViewRow{Index: row.Index, Cells: view.RowCells(row)})
	}
	if view.Empty() {
		resp.Message = NoResultsMessage
	}
	return resp
}

// GetOptions handles GET /api/selector/options
func (h *SelectorHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"fields": h.service.Options(r.Context()),
	})
}

// GetState handles GET /api/selector/state
func (h *SelectorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// GetView handles GET /api/selector/view
func (h *SelectorHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view, _, err := h.service.View(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newViewResponse(view))
}

// PutSelection handles PUT /api/selector/selections/{field}
func (h *SelectorHandler) PutSelection(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	var req SelectionRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	st, changed, err := h.service.ApplySelection(r.Context(), session.IDFromContext(r.Context()), field, req.Values)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respondChange(w, r, st, changed, field)
}

// PutRange handles PUT /api/selector/ranges/{field}
func (h *SelectorHandler) PutRange(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")

	var req RangeRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	st, changed, err := h.service.ApplyRange(r.Context(), session.IDFromContext(r.Context()), field, *req.Min, *req.Max)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respondChange(w, r, st, changed, field)
}

// PostReconcile handles POST /api/selector/reconcile with a whole widget
// submission.
func (h *SelectorHandler) PostReconcile(w http.ResponseWriter, r *http.Request) {
	var sub filter.Submission
	if err := h.validator.Decode(w, r, &sub); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	st, fields, err := h.service.Reconcile(r.Context(), session.IDFromContext(r.Context()), sub)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ChangeResponse{
		Changed: len(fields) > 0,
		Fields:  fields,
		State:   st,
	})
}

// PostClear handles POST /api/selector/clear
func (h *SelectorHandler) PostClear(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Clear(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ChangeResponse{Changed: true, State: st})
}

func (h *SelectorHandler) respondChange(w http.ResponseWriter, r *http.Request, st filter.State, changed bool, field string) {
	resp := ChangeResponse{Changed: changed, State: st}
	if changed {
		resp.Fields = []string{field}
	}
	render.JSON(w, r, resp)
}

// Export handles GET /api/selector/export/{format}
func (h *SelectorHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := session.IDFromContext(ctx)
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "export requested",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("format", string(format)),
	)

	if format == exporter.FormatPNG {
		h.serveImage(w, r, sid)
		return
	}

	var buf bytes.Buffer
	switch format {
	case exporter.FormatCSV:
		err = h.service.ExportCSV(ctx, sid, &buf)
	case exporter.FormatXLSX:
		err = h.service.ExportXLSX(ctx, sid, &buf)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewExportError(string(format), err))
		return
	}

	setAttachment(w, format)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *SelectorHandler) serveImage(w http.ResponseWriter, r *http.Request, sid string) {
	path, cleanup, err := h.service.ExportImage(r.Context(), sid)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewExportError(string(exporter.FormatPNG), err))
		return
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("open rendered image", err))
		return
	}
	defer f.Close()

	setAttachment(w, exporter.FormatPNG)
	http.ServeContent(w, r, exporter.FormatPNG.FileName(), time.Now(), f)
}

func setAttachment(w http.ResponseWriter, format exporter.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.Header().Set("Cache-Control", "no-store")
}
