package model

import "time"

// Notification types pushed over the account channel.
const (
	NotifyQuestAccepted  = "quest_accepted"
	NotifyQuestCompleted = "quest_completed"
	NotifyQuestFailed    = "quest_failed"
	NotifyLevelUp        = "level_up"
	NotifySystem         = "notification"
)

// Notification is an account-addressed message. Expired rows are filtered
// by query rather than actively purged on read; a scheduler task deletes
// them in bulk.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"index:idx_notif_acc;not null" json:"account_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Title     string    `gorm:"size:128" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	// "read" is a reserved word in MySQL; raw queries rely on the renamed column.
	Read      bool      `gorm:"column:is_read;default:false" json:"read"`
	Displayed bool      `gorm:"default:false" json:"displayed"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}
