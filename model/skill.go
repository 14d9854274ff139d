package model

import "time"

// Skill is a catalog entry unlocked automatically at its unlock level.
type Skill struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Rank        string    `gorm:"size:1;default:E" json:"rank"`
	UnlockLevel int       `gorm:"default:1" json:"unlock_level"`
	MPCost      int       `gorm:"default:0" json:"mp_cost"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HunterSkill records which skills an account has acquired.
type HunterSkill struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64     `gorm:"uniqueIndex:idx_skill_acc;not null" json:"account_id"`
	SkillID    int64     `gorm:"uniqueIndex:idx_skill_acc;not null" json:"skill_id"`
	Level      int       `gorm:"default:1" json:"level"`
	AcquiredAt time.Time `gorm:"autoCreateTime" json:"acquired_at"`
}
