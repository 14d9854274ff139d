package model

import (
	"time"

	"gorm.io/datatypes"
)

// VerificationStatus values. A submission is terminal once verified or rejected.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// VerificationSubmission links an account and quest to a submitted proof.
type VerificationSubmission struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64  `gorm:"index:idx_verif_acc;not null" json:"account_id"`
	QuestID   int64  `gorm:"index:idx_verif_quest;not null" json:"quest_id"`
	ProofType string `gorm:"size:8;not null" json:"proof_type"`
	ProofURL  string `gorm:"size:512" json:"proof_url"`
	// GPS payload for gps-type proofs: {"lat":..,"lng":..,"accuracy":..}
	GPSPayload datatypes.JSON `json:"gps_payload"`

	Status string `gorm:"size:8;default:pending;index" json:"status"`

	// AI resolution block.
	AIChecked    bool    `gorm:"default:false" json:"ai_checked"`
	AISuccess    bool    `gorm:"default:false" json:"ai_success"`
	AIConfidence float64 `gorm:"default:0" json:"ai_confidence"`

	// Manual resolution block.
	ReviewedBy   int64  `gorm:"default:0" json:"reviewed_by"`
	ReviewerNote string `gorm:"type:text" json:"reviewer_note"`

	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}
