package model_test

import (
	"testing"
	"time"

	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Account
	acc := &model.Account{
		Username: "test_hunter", PasswordHash: "hash", Status: 1,
		Level: 1, HP: 150, MaxHP: 150, MP: 80, MaxMP: 80,
	}
	require.NoError(t, db.Create(acc).Error)
	assert.Greater(t, acc.ID, int64(0))

	var found model.Account
	require.NoError(t, db.First(&found, acc.ID).Error)
	assert.Equal(t, "test_hunter", found.Username)

	// Quest + lifecycle rows
	q := &model.Quest{Title: "Morning Run", Type: model.QuestTypeDaily, IsActive: true}
	require.NoError(t, db.Create(q).Error)

	aq := &model.ActiveQuest{AccountID: acc.ID, QuestID: q.ID, Deadline: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(aq).Error)

	cq := &model.CompletedQuest{AccountID: acc.ID, QuestID: q.ID}
	require.NoError(t, db.Create(cq).Error)

	// Inventory
	item := &model.Item{Name: "Healing Potion", Price: 50}
	require.NoError(t, db.Create(item).Error)
	require.NoError(t, db.Create(&model.HunterItem{AccountID: acc.ID, ItemID: item.ID, Qty: 3}).Error)

	// Shadow
	require.NoError(t, db.Create(&model.Shadow{AccountID: acc.ID, Name: "Igris", Rank: "B"}).Error)

	// Verification
	sub := &model.VerificationSubmission{
		AccountID: acc.ID, QuestID: q.ID,
		ProofType: model.ProofImage, Status: model.VerificationPending,
	}
	require.NoError(t, db.Create(sub).Error)

	// Notification
	n := &model.Notification{
		AccountID: acc.ID, Type: model.NotifyQuestCompleted,
		Title: "Quest Complete", ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(n).Error)

	// AuditLog
	al := &model.AuditLog{TraceID: "trace-001", Action: "login", CreatedAt: time.Now()}
	require.NoError(t, db.Create(al).Error)
}

func columnNames(t *testing.T, db *gorm.DB, mdl interface{}) []string {
	t.Helper()
	cols, err := db.Migrator().ColumnTypes(mdl)
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name())
	}
	return names
}

// "read" and "rank" are reserved words in MySQL 8; the raw selects in
// notify and ranking depend on the renamed columns.
func TestReservedWordColumnsRenamed(t *testing.T) {
	db := testutil.SetupTestDB(t)

	notifCols := columnNames(t, db, &model.Notification{})
	assert.Contains(t, notifCols, "is_read")
	assert.NotContains(t, notifCols, "read")

	accCols := columnNames(t, db, &model.Account{})
	assert.Contains(t, accCols, "hunter_rank")
	assert.NotContains(t, accCols, "rank")
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, model.SeedDefaults(db))
	var first int64
	db.Model(&model.Quest{}).Count(&first)
	assert.Greater(t, first, int64(0), "seed creates starter quests")

	// Running the seed again must not duplicate catalog rows.
	require.NoError(t, model.SeedDefaults(db))
	var second int64
	db.Model(&model.Quest{}).Count(&second)
	assert.Equal(t, first, second)
}
