package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	hub := NewHub(zap.NewNop())
	t.Cleanup(hub.CloseAll)
	return NewService(db, hub, 0, zap.NewNop()), db
}

func TestNotify_PersistsRow(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 7, model.NotifyQuestCompleted, "Quest Complete", "well done")

	var n model.Notification
	require.NoError(t, db.First(&n).Error)
	assert.Equal(t, int64(7), n.AccountID)
	assert.Equal(t, model.NotifyQuestCompleted, n.Type)
	assert.False(t, n.Read)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), n.ExpiresAt, time.Minute)
}

func TestNotify_OfflineAccountStillPersists(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 404, model.NotifySystem, "Hello", "nobody home")

	var count int64
	db.Model(&model.Notification{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnread_FiltersReadAndExpired(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 7, model.NotifySystem, "A", "")
	svc.Notify(context.Background(), 7, model.NotifySystem, "B", "")
	svc.Notify(context.Background(), 8, model.NotifySystem, "other account", "")

	var first model.Notification
	require.NoError(t, db.Where("title = ?", "A").First(&first).Error)
	require.NoError(t, svc.MarkRead(context.Background(), 7, first.ID))

	rows, err := svc.Unread(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].Title)

	// Expired rows disappear from reads.
	require.NoError(t, db.Model(&model.Notification{}).
		Where("title = ?", "B").
		Update("expires_at", time.Now().Add(-time.Hour)).Error)
	rows, err = svc.Unread(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkRead_ScopedToAccount(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 7, model.NotifySystem, "mine", "")
	var n model.Notification
	require.NoError(t, db.First(&n).Error)

	// Another account cannot mark it.
	require.NoError(t, svc.MarkRead(context.Background(), 8, n.ID))
	require.NoError(t, db.First(&n, n.ID).Error)
	assert.False(t, n.Read)

	require.NoError(t, svc.MarkRead(context.Background(), 7, n.ID))
	require.NoError(t, db.First(&n, n.ID).Error)
	assert.True(t, n.Read)
}

func TestMarkDisplayed(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 7, model.NotifySystem, "popup", "")
	var n model.Notification
	require.NoError(t, db.First(&n).Error)

	require.NoError(t, svc.MarkDisplayed(context.Background(), 7, n.ID))
	require.NoError(t, db.First(&n, n.ID).Error)
	assert.True(t, n.Displayed)
}

func TestPurgeExpired(t *testing.T) {
	svc, db := newService(t)
	svc.Notify(context.Background(), 7, model.NotifySystem, "old", "")
	svc.Notify(context.Background(), 7, model.NotifySystem, "fresh", "")
	require.NoError(t, db.Model(&model.Notification{}).
		Where("title = ?", "old").
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	purged, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var count int64
	db.Model(&model.Notification{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
