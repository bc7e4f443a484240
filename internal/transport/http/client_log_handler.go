package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	mw "github.com/NIKPRIN6598/Cleaner-Selector/internal/middleware"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
)

// ClientLogHandler records problems reported by the selector page's script.
type ClientLogHandler struct {
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		logger:       logger.With(slog.String("component", "client_log")),
		errorHandler: errorHandler,
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string `json:"message" validate:"required,max=2000"`
	Source  string `json:"source,omitempty" validate:"max=200"`
}

// Handle handles POST /api/client-log
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	level := slog.LevelInfo
	switch req.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h.logger.LogAttrs(r.Context(), level, req.Message,
		slog.String("client_source", req.Source),
		slog.String("session_id", session.IDFromContext(r.Context())),
	)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{"success": true})
}
