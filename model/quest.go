package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuestType categorizes a quest.
type QuestType = string

const (
	QuestTypeDaily      QuestType = "daily"
	QuestTypeEmergency  QuestType = "emergency"
	QuestTypePunishment QuestType = "punishment"
	QuestTypeCustom     QuestType = "custom"
	QuestTypeMain       QuestType = "main"
)

// ProofType is the kind of evidence a quest requires.
const (
	ProofNone  = "none"
	ProofImage = "image"
	ProofVideo = "video"
	ProofGPS   = "gps"
)

// VerificationMethod is how submitted proof gets resolved.
const (
	VerifyNone   = "none"
	VerifyManual = "manual"
	VerifyAI     = "ai"
	VerifyGPS    = "gps"
)

// ItemDrop is one entry in a quest's reward drop table.
// Rate is an independent percentage chance in [0,100].
type ItemDrop struct {
	ItemID int     `json:"item_id"`
	Rate   float64 `json:"rate"`
	Qty    int     `json:"qty"`
}

// Quest is a quest template. Templates are immutable once published; hunters
// consume them per-account through ActiveQuest / CompletedQuest rows.
type Quest struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Type        QuestType `gorm:"size:16;index;not null" json:"type"`
	Difficulty  string    `gorm:"size:1;default:E" json:"difficulty"`

	RewardExperience int64          `gorm:"default:0" json:"reward_experience"`
	RewardCurrency   int64          `gorm:"default:0" json:"reward_currency"`
	RewardStatPoints int            `gorm:"default:0" json:"reward_stat_points"`
	RewardItems      datatypes.JSON `json:"reward_items"` // []ItemDrop
	ShadowReward     string         `gorm:"size:64" json:"shadow_reward"` // name of extractable shadow, empty = none

	PenaltyExperience int64 `gorm:"default:0" json:"penalty_experience"`
	PenaltyCurrency   int64 `gorm:"default:0" json:"penalty_currency"`

	TimeLimitHours     int    `gorm:"default:24" json:"time_limit_hours"`
	RequiresProof      bool   `gorm:"default:false" json:"requires_proof"`
	ProofType          string `gorm:"size:8;default:none" json:"proof_type"`
	VerificationMethod string `gorm:"size:8;default:none" json:"verification_method"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedBy int64     `gorm:"default:0" json:"created_by"` // 0 = system seed
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ActiveQuest links one account to one accepted quest template.
type ActiveQuest struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"uniqueIndex:idx_active_acc_quest;not null" json:"account_id"`
	QuestID   int64     `gorm:"uniqueIndex:idx_active_acc_quest;not null" json:"quest_id"`
	Progress  int       `gorm:"default:0" json:"progress"` // 0-100, last write wins
	StartedAt time.Time `gorm:"autoCreateTime" json:"started_at"`
	Deadline  time.Time `gorm:"not null" json:"deadline"`
}

// CompletedQuest records a finished quest for an account.
type CompletedQuest struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   int64     `gorm:"uniqueIndex:idx_done_acc_quest;not null" json:"account_id"`
	QuestID     int64     `gorm:"uniqueIndex:idx_done_acc_quest;not null" json:"quest_id"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}
