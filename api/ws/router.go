package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ariselabs/arise-server/notify"
	"go.uber.org/zap"
)

// clientMessage is the inbound message shape. Unknown types are logged and
// dropped; a malformed client must not kill the connection.
type clientMessage struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notification_id"`
	TS             int64  `json:"ts"`
}

type router struct {
	notifier *notify.Service
	logger   *zap.Logger
}

func newRouter(notifier *notify.Service, logger *zap.Logger) *router {
	return &router{notifier: notifier, logger: logger}
}

func (r *router) dispatch(s *notify.Session, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Warn("malformed ws message",
			zap.Int64("account_id", s.AccountID))
		return
	}

	switch msg.Type {
	case "ping":
		s.SendPong(msg.TS)
	case "mark_notification_read":
		r.mark(s, msg.NotificationID, r.notifier.MarkRead)
	case "mark_notification_displayed":
		r.mark(s, msg.NotificationID, r.notifier.MarkDisplayed)
	default:
		r.logger.Warn("unknown ws message type",
			zap.Int64("account_id", s.AccountID),
			zap.String("type", msg.Type))
	}
}

func (r *router) mark(s *notify.Session, notificationID int64, fn func(context.Context, int64, int64) error) {
	if notificationID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := fn(ctx, s.AccountID, notificationID); err != nil {
		r.logger.Error("notification mark failed",
			zap.Int64("account_id", s.AccountID),
			zap.Int64("notification_id", notificationID),
			zap.Error(err))
	}
}
