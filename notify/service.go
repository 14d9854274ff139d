package notify

import (
	"context"
	"time"

	"github.com/ariselabs/arise-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTTL = 7 * 24 * time.Hour

// AnnouncementChannel is the pub/sub channel carrying system-wide
// announcements, mirrored by the SSE stream.
const AnnouncementChannel = "announcements"

// Service persists notifications and pushes them over the hub. Push
// failures are logged and swallowed: a reward-granting request still
// succeeds when its notification could not be delivered, and a
// disconnected account reconciles via GET /api/notifications.
type Service struct {
	db     *gorm.DB
	hub    *Hub
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a notification Service. ttl <= 0 uses the 7-day default.
func NewService(db *gorm.DB, hub *Hub, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{db: db, hub: hub, ttl: ttl, logger: logger}
}

// Hub exposes the underlying connection registry.
func (svc *Service) Hub() *Hub { return svc.hub }

// Notify stores a notification row and pushes it to the account's open
// connection, best-effort.
func (svc *Service) Notify(ctx context.Context, accountID int64, typ, title, message string) {
	n := &model.Notification{
		AccountID: accountID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ExpiresAt: time.Now().Add(svc.ttl),
	}
	if err := svc.db.WithContext(ctx).Create(n).Error; err != nil {
		svc.logger.Error("notification persist failed",
			zap.Int64("account_id", accountID),
			zap.String("type", typ),
			zap.Error(err))
		return
	}
	if !svc.hub.SendToAccount(accountID, NewEnvelope(model.NotifySystem, n)) {
		svc.logger.Debug("notification push skipped, account offline",
			zap.Int64("account_id", accountID))
	}
}

// PushEvent pushes a transient event envelope without persisting it
// (quest_accepted and friends carry their own payload and need no inbox row).
func (svc *Service) PushEvent(accountID int64, typ string, data interface{}) {
	if !svc.hub.SendToAccount(accountID, NewEnvelope(typ, data)) {
		svc.logger.Debug("event push skipped, account offline",
			zap.Int64("account_id", accountID),
			zap.String("type", typ))
	}
}

// Unread returns the account's unread, unexpired notifications.
func (svc *Service) Unread(ctx context.Context, accountID int64) ([]model.Notification, error) {
	var rows []model.Notification
	err := svc.db.WithContext(ctx).
		Where("account_id = ? AND is_read = ? AND expires_at > ?", accountID, false, time.Now()).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// MarkRead flags one notification as read. Scoped to the owning account.
func (svc *Service) MarkRead(ctx context.Context, accountID, notificationID int64) error {
	return svc.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Update("is_read", true).Error
}

// MarkDisplayed flags one notification as displayed.
func (svc *Service) MarkDisplayed(ctx context.Context, accountID, notificationID int64) error {
	return svc.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Update("displayed", true).Error
}

// PurgeExpired deletes notifications past their expiry. Called by the
// scheduler; reads always filter on expires_at so purging is not
// correctness-critical.
func (svc *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res := svc.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
