package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/ariselabs/arise-server/cache"
	"github.com/ariselabs/arise-server/config"
	"github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades authenticated clients onto the notification channel.
type Handler struct {
	cfg      *config.Config
	cache    cache.Cache
	notifier *notify.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the WebSocket handler.
func NewHandler(cfg *config.Config, c cache.Cache, notifier *notify.Service, logger *zap.Logger) *Handler {
	h := &Handler{
		cfg:      cfg,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origins := cfg.Security.AllowedOrigins
			if len(origins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Handle authenticates via the token query parameter (browsers cannot set
// headers on WebSocket dials), upgrades, registers the session and runs the
// read loop until the peer disconnects or goes silent.
func (h *Handler) Handle(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
		return
	}
	claims, err := middleware.ParseToken(tokenStr, h.cfg.Security.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return
	}
	cacheCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	exists, err := h.cache.Exists(cacheCtx, "session:"+tokenStr)
	cancel()
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session expired"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed",
			zap.Int64("account_id", claims.AccountID),
			zap.Error(err))
		return
	}

	session := notify.NewSession(claims.AccountID, conn, h.cfg.Game.HeartbeatInterval, h.logger)
	h.notifier.Hub().Register(session)

	h.pushUnread(session)
	h.readPump(session)
}

// pushUnread delivers the pending inbox right after connect so a returning
// client needs no extra round trip.
func (h *Handler) pushUnread(s *notify.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rows, err := h.notifier.Unread(ctx, s.AccountID)
	if err != nil {
		h.logger.Error("unread fetch failed",
			zap.Int64("account_id", s.AccountID),
			zap.Error(err))
		return
	}
	if len(rows) > 0 {
		s.Send(notify.NewEnvelope("unread_notifications", gin.H{
			"count":         len(rows),
			"notifications": rows,
		}))
	}
}

// readPump consumes client messages until error or silence. The read
// deadline is two heartbeat intervals; pong frames and any client message
// push it forward.
func (h *Handler) readPump(s *notify.Session) {
	defer func() {
		h.notifier.Hub().Unregister(s)
		s.Close()
	}()

	s.ResetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.ResetReadDeadline()
		return nil
	})

	router := newRouter(h.notifier, h.logger)
	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ws read error",
					zap.Int64("account_id", s.AccountID),
					zap.Error(err))
			}
			return
		}
		s.ResetReadDeadline()
		router.dispatch(s, raw)
	}
}
