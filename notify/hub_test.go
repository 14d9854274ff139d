package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// connPair returns a live server-side and client-side WebSocket connection.
func connPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	server := <-serverConns
	return server, client
}

func readClientEnvelope(t *testing.T, client *websocket.Conn) *Envelope {
	t.Helper()
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return &env
}

func TestHub_SendToAccount(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server, client := connPair(t)
	s := NewSession(9, server, time.Second, zap.NewNop())
	hub.Register(s)
	defer hub.CloseAll()

	ok := hub.SendToAccount(9, NewEnvelope("quest_accepted", map[string]int{"quest_id": 3}))
	assert.True(t, ok)

	env := readClientEnvelope(t, client)
	assert.Equal(t, "quest_accepted", env.Type)
}

func TestHub_SendToOfflineAccount(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.False(t, hub.SendToAccount(404, NewEnvelope("notification", nil)))
}

func TestHub_LastConnectWins(t *testing.T) {
	hub := NewHub(zap.NewNop())
	serverA, _ := connPair(t)
	serverB, clientB := connPair(t)

	first := NewSession(9, serverA, time.Second, zap.NewNop())
	hub.Register(first)
	second := NewSession(9, serverB, time.Second, zap.NewNop())
	hub.Register(second)
	defer hub.CloseAll()

	assert.True(t, first.IsClosed(), "displaced session is closed")
	assert.Equal(t, 1, hub.Count())
	assert.Same(t, second, hub.Get(9))

	// The displaced session's teardown must not evict the replacement.
	hub.Unregister(first)
	assert.True(t, hub.IsOnline(9))

	require.True(t, hub.SendToAccount(9, NewEnvelope("notification", nil)))
	env := readClientEnvelope(t, clientB)
	assert.Equal(t, "notification", env.Type)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	serverA, clientA := connPair(t)
	serverB, clientB := connPair(t)
	hub.Register(NewSession(1, serverA, time.Second, zap.NewNop()))
	hub.Register(NewSession(2, serverB, time.Second, zap.NewNop()))
	defer hub.CloseAll()

	hub.Broadcast(NewEnvelope("notification", map[string]string{"title": "maintenance"}))

	assert.Equal(t, "notification", readClientEnvelope(t, clientA).Type)
	assert.Equal(t, "notification", readClientEnvelope(t, clientB).Type)
}

func TestSession_SendAfterClose(t *testing.T) {
	server, _ := connPair(t)
	s := NewSession(9, server, time.Second, zap.NewNop())
	s.Close()
	assert.False(t, s.Send(NewEnvelope("notification", nil)))
}

func TestSession_CloseConcurrent(t *testing.T) {
	// A displacing Register and the read pump's deferred cleanup can both
	// close the same session.
	server, _ := connPair(t)
	s := NewSession(9, server, time.Second, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	assert.True(t, s.IsClosed())
}

func TestSession_ReadDeadlineIsTwoHeartbeats(t *testing.T) {
	server, _ := connPair(t)
	s := NewSession(9, server, 15*time.Second, zap.NewNop())
	defer s.Close()
	assert.Equal(t, 30*time.Second, s.ReadDeadline())
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("pong", map[string]int64{"client_ts": 5})
	assert.Equal(t, "pong", env.Type)
	assert.JSONEq(t, `{"client_ts":5}`, string(env.Data))

	empty := NewEnvelope("notification", nil)
	assert.Nil(t, empty.Data)
}
