package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	mw "github.com/NIKPRIN6598/Cleaner-Selector/internal/middleware"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	ws "github.com/NIKPRIN6598/Cleaner-Selector/internal/websocket"
)

// WebSocketOptions configures the upgrade endpoint.
type WebSocketOptions struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
}

// WebSocketHandler upgrades a browser tab and attaches it to the hub under
// its session id.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	opts     WebSocketOptions
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *ws.Hub, opts WebSocketOptions, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		opts:   opts,
		logger: logger.With(slog.String("component", "websocket_handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			apierrors.NewProblemDetails(status, apierrors.TypeValidation,
				http.StatusText(status), reason.Error(), r.URL.Path).Write(w)
		},
	}
	return h
}

// checkOrigin admits requests without an Origin header, same-host pages and
// the configured origins.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	if len(h.opts.AllowedOrigins) > 0 && mw.OriginAllowed(h.opts.AllowedOrigins, origin) {
		return true
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.opts.AllowedOrigins))
	return false
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := session.IDFromContext(ctx)
	if sid == "" {
		apierrors.NewProblemDetails(http.StatusBadRequest, apierrors.TypeValidation,
			"Bad Request", "no session", r.URL.Path).Write(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, ws.NewConnectionWrapper(conn), sid, ws.ClientOptions{
		PingPeriod: h.opts.PingPeriod,
		PongWait:   h.opts.PongWait,
		TraceID:    mw.GetRequestID(ctx),
		Logger:     h.logger,
	})
	client.Start()

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("session_id", sid))
}
