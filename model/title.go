package model

import "time"

// Title is a catalog entry earned when reaching its required level.
type Title struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	RequiredLevel int       `gorm:"default:1" json:"required_level"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HunterTitle records an earned title; at most one is equipped per account.
type HunterTitle struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"uniqueIndex:idx_title_acc;not null" json:"account_id"`
	TitleID   int64     `gorm:"uniqueIndex:idx_title_acc;not null" json:"title_id"`
	Equipped  bool      `gorm:"default:false" json:"equipped"`
	EarnedAt  time.Time `gorm:"autoCreateTime" json:"earned_at"`
}
