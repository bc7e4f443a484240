package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/infrastructure"
)

type envelope struct {
	sessionID string
	payload   []byte
}

// Hub tracks connected tabs per session and delivers events only to the
// tabs of the session they belong to.
type Hub struct {
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	publish    chan envelope
	done       chan struct{}
	closeOnce  sync.Once

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	messagesSent    int64
	messagesDropped int64
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan envelope, 64),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Run is the hub's main loop. It returns when ctx is done, after closing
// every client's send channel.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down",
				slog.Int64("messages_sent", h.messagesSent),
				slog.Int64("messages_dropped", h.messagesDropped))
			return nil

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.sessions[client.sessionID]
			if !ok {
				set = make(map[*Client]bool)
				h.sessions[client.sessionID] = set
			}
			set[client] = true
			h.mu.Unlock()

			cctx := client.context()
			h.metrics.AddWebSocketClients(cctx, 1)
			h.logger.InfoContext(cctx, "Client registered",
				slog.Int("total_clients", h.ClientCount()),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.deliver(client, Event{
				Type: TypeConnection,
				Data: map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
				Timestamp: time.Now(),
				TraceID:   client.traceID,
			})

		case client := <-h.unregister:
			if h.remove(client) {
				cctx := client.context()
				h.metrics.AddWebSocketClients(cctx, -1)
				h.logger.InfoContext(cctx, "Client unregistered",
					slog.Int("total_clients", h.ClientCount()),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case env := <-h.publish:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.sessions[env.sessionID]))
			for c := range h.sessions[env.sessionID] {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				select {
				case c.send <- env.payload:
					h.messagesSent++
				default:
					h.messagesDropped++
					if h.remove(c) {
						h.metrics.AddWebSocketClients(c.context(), -1)
					}
					h.logger.WarnContext(c.context(), "Client send buffer full, disconnecting",
						slog.String("client_id", c.id))
				}
			}
		}
	}
}

// remove drops client and closes its send channel. It reports whether the
// client was still registered.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[client.sessionID]
	if !ok || !set[client] {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.sessions, client.sessionID)
	}
	close(client.send)
	return true
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.sessions {
		for c := range set {
			close(c.send)
		}
		h.metrics.AddWebSocketClients(context.Background(), -int64(len(set)))
		delete(h.sessions, id)
	}
}

func (h *Hub) deliver(c *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error marshaling message", slog.String("error", err.Error()))
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("Failed to send connection message - client buffer full",
			slog.String("client_id", c.id))
	}
}

// Register adds a client to the hub. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify queues ev for every tab of sessionID. It never blocks the caller
// for longer than ctx allows.
func (h *Hub) Notify(ctx context.Context, sessionID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.TraceID == "" {
		ev.TraceID = infrastructure.GetTraceID(ctx)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", ev.Type))
		return
	}

	select {
	case h.publish <- envelope{sessionID: sessionID, payload: data}:
	case <-h.done:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "Dropped websocket event",
			slog.String("message_type", ev.Type),
			slog.String("error", ctx.Err().Error()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.sessions {
		n += len(set)
	}
	return n
}

// SessionClientCount returns the number of tabs open for one session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
