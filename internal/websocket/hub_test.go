package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errClosed = errors.New("connection closed")

type frame struct {
	Type int
	Data []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	written chan frame
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan frame, 32), closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	select {
	case <-f.closed:
		return errClosed
	default:
	}
	f.written <- frame{Type: t, Data: data}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errClosed
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string               { return "127.0.0.1:5000" }

func (f *fakeConn) next(t *testing.T) frame {
	t.Helper()
	select {
	case fr := <-f.written:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return frame{}
	}
}

func decodeEvent(t *testing.T, fr frame) Event {
	t.Helper()
	require.Equal(t, websocket.TextMessage, fr.Type)
	var ev Event
	require.NoError(t, json.Unmarshal(fr.Data, &ev))
	return ev
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, func()) {
	t.Helper()
	hub := NewHub(quietLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, hub.Run(ctx))
	}()
	return hub, func() {
		cancel()
		<-done
	}
}

func TestHubNotifiesOnlyOwnSession(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	connA, connB := newFakeConn(), newFakeConn()
	a := NewClient(hub, connA, "session-a", ClientOptions{Logger: quietLogger()})
	b := NewClient(hub, connB, "session-b", ClientOptions{Logger: quietLogger()})
	a.Start()
	b.Start()

	assert.Equal(t, TypeConnection, decodeEvent(t, connA.next(t)).Type)
	assert.Equal(t, TypeConnection, decodeEvent(t, connB.next(t)).Type)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionClientCount("session-a"))

	hub.Notify(context.Background(), "session-a", Event{
		Type: TypeViewChanged,
		Data: ViewChanged{Fields: []string{"region"}, Rows: 5},
	})

	ev := decodeEvent(t, connA.next(t))
	assert.Equal(t, TypeViewChanged, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(5), data["rows"])

	select {
	case fr := <-connB.written:
		t.Fatalf("other session received %s", fr.Data)
	case <-time.After(50 * time.Millisecond):
	}

	connA.Close()
	assert.Eventually(t, func() bool { return hub.SessionClientCount("session-a") == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, stop := startHub(t)

	conn := newFakeConn()
	NewClient(hub, conn, "s", ClientOptions{Logger: quietLogger()}).Start()
	decodeEvent(t, conn.next(t))

	stop()
	assert.Equal(t, websocket.CloseMessage, conn.next(t).Type)
	assert.Equal(t, 0, hub.ClientCount())

	late := newFakeConn()
	NewClient(hub, late, "s", ClientOptions{Logger: quietLogger()}).Start()
	assert.Equal(t, websocket.CloseMessage, late.next(t).Type, "register after stop closes the client")

	hub.Notify(context.Background(), "s", Event{Type: TypeViewChanged})
}

func TestNotifyHonoursContext(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	for i := 0; i < cap(hub.publish); i++ {
		hub.publish <- envelope{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	hub.Notify(ctx, "s", Event{Type: TypeViewChanged})
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientOptionsDefaults(t *testing.T) {
	hub := NewHub(quietLogger(), nil)
	c := NewClient(hub, newFakeConn(), "s", ClientOptions{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second})
	assert.Equal(t, 9*time.Second, c.pingPeriod)
	assert.NotEmpty(t, c.ID())
}

func TestGorillaRoundTrip(t *testing.T) {
	hub, stop := startHub(t)
	defer stop()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, NewConnectionWrapper(conn), "s1", ClientOptions{Logger: quietLogger()}).Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeConnection, ev.Type)

	require.Eventually(t, func() bool { return hub.SessionClientCount("s1") == 1 }, time.Second, 5*time.Millisecond)
	hub.Notify(context.Background(), "s1", Event{Type: TypeViewChanged, Data: ViewChanged{Cleared: true}})

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeViewChanged, ev.Type)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}
