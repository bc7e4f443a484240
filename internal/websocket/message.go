package websocket

import "time"

// Message types
const (
	TypeConnection  = "connection"
	TypeViewChanged = "view_changed"
)

// Event is the JSON frame pushed to browsers.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ViewChanged tells a tab that its session's filters moved and the table
// should be reloaded.
type ViewChanged struct {
	Fields  []string `json:"fields,omitempty"`
	Cleared bool     `json:"cleared,omitempty"`
	Rows    int      `json:"rows"`
	Summary []string `json:"summary,omitempty"`
}
