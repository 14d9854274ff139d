package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariselabs/arise-server/config"
	"github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"github.com/ariselabs/arise-server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type wsFixture struct {
	server   *httptest.Server
	notifier *notify.Service
	db       *gorm.DB
	token    string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	hub := notify.NewHub(logger)
	notifier := notify.NewService(db, hub, 0, logger)

	cfg := &config.Config{}
	cfg.Security.JWTSecret = "test-secret"
	cfg.Game.HeartbeatInterval = 100 * time.Millisecond

	token, err := middleware.GenerateToken(7, "hunter", cfg.Security.JWTSecret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "session:"+token, "7", time.Hour))

	handler := NewHandler(cfg, c, notifier, logger)
	engine := gin.New()
	engine.GET("/ws", handler.Handle)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	t.Cleanup(hub.CloseAll)

	return &wsFixture{server: server, notifier: notifier, db: db, token: token}
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *notify.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env notify.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return &env
}

func TestHandle_RejectsMissingToken(t *testing.T) {
	f := newWSFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestHandle_RejectsBadToken(t *testing.T) {
	f := newWSFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestHandle_PushesUnreadOnConnect(t *testing.T) {
	f := newWSFixture(t)
	f.notifier.Notify(context.Background(), 7, model.NotifySystem, "Welcome", "rise and grind")

	conn := f.dial(t, f.token)
	env := readEnvelope(t, conn)
	assert.Equal(t, "unread_notifications", env.Type)

	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 1, payload.Count)
}

func TestHandle_PingPong(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.token)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "ping", "ts": 12345}))
	env := readEnvelope(t, conn)
	assert.Equal(t, "pong", env.Type)

	var payload struct {
		ClientTS int64 `json:"client_ts"`
		ServerTS int64 `json:"server_ts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, int64(12345), payload.ClientTS)
	assert.NotZero(t, payload.ServerTS)
}

func TestHandle_MarkNotificationRead(t *testing.T) {
	f := newWSFixture(t)
	f.notifier.Notify(context.Background(), 7, model.NotifySystem, "Quest", "do it")
	var n model.Notification
	require.NoError(t, f.db.First(&n).Error)

	conn := f.dial(t, f.token)
	readEnvelope(t, conn) // drain unread push

	require.NoError(t, conn.WriteJSON(gin.H{"type": "mark_notification_read", "notification_id": n.ID}))
	require.Eventually(t, func() bool {
		var got model.Notification
		if err := f.db.First(&got, n.ID).Error; err != nil {
			return false
		}
		return got.Read
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHandle_LastConnectWins(t *testing.T) {
	f := newWSFixture(t)
	first := f.dial(t, f.token)
	require.Eventually(t, func() bool {
		return f.notifier.Hub().IsOnline(7)
	}, time.Second, 10*time.Millisecond)

	second := f.dial(t, f.token)
	// The displaced connection is closed by the server.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 1, f.notifier.Hub().Count())

	// The replacement still works.
	require.NoError(t, second.WriteJSON(gin.H{"type": "ping", "ts": 1}))
	env := readEnvelope(t, second)
	assert.Equal(t, "pong", env.Type)
}

func TestHandle_ServerPushReachesClient(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.token)
	require.Eventually(t, func() bool {
		return f.notifier.Hub().IsOnline(7)
	}, time.Second, 10*time.Millisecond)

	f.notifier.PushEvent(7, model.NotifyQuestCompleted, gin.H{"quest_id": 1})
	env := readEnvelope(t, conn)
	assert.Equal(t, model.NotifyQuestCompleted, env.Type)
}
