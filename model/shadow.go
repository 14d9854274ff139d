package model

import "time"

// Shadow is a soldier extracted from a completed quest that carried a
// shadow reward. Shadows belong to exactly one account.
type Shadow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   int64     `gorm:"index:idx_shadow_acc;not null" json:"account_id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Rank        string    `gorm:"size:1;default:E" json:"rank"`
	Level       int       `gorm:"default:1" json:"level"`
	SourceQuest int64     `gorm:"default:0" json:"source_quest"`
	ExtractedAt time.Time `gorm:"autoCreateTime" json:"extracted_at"`
}
