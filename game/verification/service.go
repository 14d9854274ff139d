package verification

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/ariselabs/arise-server/audit"
	"github.com/ariselabs/arise-server/game/quest"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrQuestNotActive     = errors.New("quest is not active for this account")
	ErrProofNotRequired   = errors.New("quest does not require proof")
	ErrPendingReview      = errors.New("a submission is already awaiting review")
	ErrAlreadyVerified    = errors.New("proof already verified")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyResolved    = errors.New("submission already resolved")
	ErrInvalidGPSPayload  = errors.New("gps payload must carry lat and lng")
)

// SubmitInput is the proof payload attached to a quest.
type SubmitInput struct {
	ProofURL   string          `json:"proof_url"`
	GPSPayload json.RawMessage `json:"gps_payload"`
}

// gpsProof is the minimal shape a gps submission must carry.
type gpsProof struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// Service resolves quest proof. AI and gps submissions resolve synchronously;
// manual ones wait for an admin verdict. A verified submission completes the
// quest through the quest service's verified path.
type Service struct {
	db          *gorm.DB
	quests      *quest.Service
	notifier    *notify.Service
	auditor     *audit.Service
	successRate float64 // AI stub approval probability
	roll        func() float64
	logger      *zap.Logger
}

// NewService creates a verification Service. roll may be nil to use the
// default random source.
func NewService(db *gorm.DB, quests *quest.Service, notifier *notify.Service, auditor *audit.Service, successRate float64, roll func() float64, logger *zap.Logger) *Service {
	if successRate <= 0 || successRate > 1 {
		successRate = 0.7
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &Service{
		db:          db,
		quests:      quests,
		notifier:    notifier,
		auditor:     auditor,
		successRate: successRate,
		roll:        roll,
		logger:      logger,
	}
}

// Submit attaches proof to an active quest and resolves it according to the
// quest's verification method. The returned Result is non-nil only when the
// submission verified and completed the quest in the same call.
func (svc *Service) Submit(ctx context.Context, accountID, questID int64, in SubmitInput) (*model.VerificationSubmission, *quest.Result, error) {
	var aq model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&aq).Error; err != nil {
		return nil, nil, ErrQuestNotActive
	}
	var q model.Quest
	if err := svc.db.WithContext(ctx).First(&q, questID).Error; err != nil {
		return nil, nil, err
	}
	if !q.RequiresProof || q.VerificationMethod == model.VerifyNone {
		return nil, nil, ErrProofNotRequired
	}

	// Rejected submissions may be retried; verified and pending ones block.
	var prior model.VerificationSubmission
	err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ? AND status <> ?",
			accountID, questID, model.VerificationRejected).
		First(&prior).Error
	if err == nil {
		if prior.Status == model.VerificationVerified {
			return nil, nil, ErrAlreadyVerified
		}
		return nil, nil, ErrPendingReview
	}

	sub := &model.VerificationSubmission{
		AccountID: accountID,
		QuestID:   questID,
		ProofType: q.ProofType,
		ProofURL:  in.ProofURL,
		Status:    model.VerificationPending,
	}
	if len(in.GPSPayload) > 0 {
		sub.GPSPayload = datatypes.JSON(in.GPSPayload)
	}
	if err := svc.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, nil, err
	}

	switch q.VerificationMethod {
	case model.VerifyAI:
		return svc.resolveAI(ctx, sub, &q)
	case model.VerifyGPS:
		return svc.resolveGPS(ctx, sub, &q)
	default: // manual
		if svc.notifier != nil {
			svc.notifier.Notify(ctx, accountID, model.NotifySystem,
				"Proof Submitted", "Your proof for "+q.Title+" is awaiting review.")
		}
		return sub, nil, nil
	}
}

// resolveAI is the AI verification stub: a weighted coin flip with a fake
// confidence score. A real classifier slots in behind the same fields.
func (svc *Service) resolveAI(ctx context.Context, sub *model.VerificationSubmission, q *model.Quest) (*model.VerificationSubmission, *quest.Result, error) {
	success := svc.roll() < svc.successRate
	sub.AIChecked = true
	sub.AISuccess = success
	sub.AIConfidence = 0.5 + svc.roll()*0.5
	return svc.finalize(ctx, sub, q, success, "")
}

// resolveGPS verifies presence of a plausible coordinate pair. There is no
// geofence yet; the payload shape is the contract.
func (svc *Service) resolveGPS(ctx context.Context, sub *model.VerificationSubmission, q *model.Quest) (*model.VerificationSubmission, *quest.Result, error) {
	var p gpsProof
	if len(sub.GPSPayload) == 0 || json.Unmarshal(sub.GPSPayload, &p) != nil || (p.Lat == 0 && p.Lng == 0) {
		now := time.Now()
		sub.Status = model.VerificationRejected
		sub.ResolvedAt = &now
		if err := svc.db.WithContext(ctx).Save(sub).Error; err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrInvalidGPSPayload
	}
	return svc.finalize(ctx, sub, q, true, "")
}

// Review records an admin verdict on a pending submission. Verified or
// rejected submissions are terminal and cannot be re-reviewed.
func (svc *Service) Review(ctx context.Context, reviewerID, submissionID int64, approve bool, note string) (*model.VerificationSubmission, *quest.Result, error) {
	var sub model.VerificationSubmission
	if err := svc.db.WithContext(ctx).First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSubmissionNotFound
		}
		return nil, nil, err
	}
	if sub.Status != model.VerificationPending {
		return nil, nil, ErrAlreadyResolved
	}
	var q model.Quest
	if err := svc.db.WithContext(ctx).First(&q, sub.QuestID).Error; err != nil {
		return nil, nil, err
	}
	sub.ReviewedBy = reviewerID
	sub.ReviewerNote = note

	if svc.auditor != nil {
		svc.auditor.Log(audit.Entry{
			AccountID: &reviewerID,
			Action:    "verification_review",
			Request: map[string]interface{}{
				"submission_id": submissionID,
				"approve":       approve,
			},
		})
	}
	return svc.finalize(ctx, &sub, &q, approve, note)
}

// finalize writes the terminal status and, on success, completes the quest.
// The quest may have expired or been abandoned since submission; in that case
// the verdict still stands but no reward flows.
func (svc *Service) finalize(ctx context.Context, sub *model.VerificationSubmission, q *model.Quest, success bool, note string) (*model.VerificationSubmission, *quest.Result, error) {
	now := time.Now()
	sub.ResolvedAt = &now
	if success {
		sub.Status = model.VerificationVerified
	} else {
		sub.Status = model.VerificationRejected
	}
	if err := svc.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, nil, err
	}

	if !success {
		if svc.notifier != nil {
			msg := "Your proof for " + q.Title + " was rejected."
			if note != "" {
				msg += " " + note
			}
			svc.notifier.Notify(ctx, sub.AccountID, model.NotifySystem, "Proof Rejected", msg)
		}
		return sub, nil, nil
	}

	res, err := svc.quests.CompleteVerified(ctx, sub.AccountID, sub.QuestID)
	if err != nil {
		if errors.Is(err, quest.ErrNotActive) {
			svc.logger.Warn("verified proof for quest no longer active",
				zap.Int64("account_id", sub.AccountID),
				zap.Int64("quest_id", sub.QuestID))
			return sub, nil, nil
		}
		return sub, nil, err
	}
	return sub, res, nil
}

// Pending lists submissions awaiting manual review, oldest first.
func (svc *Service) Pending(ctx context.Context, limit int) ([]model.VerificationSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []model.VerificationSubmission
	err := svc.db.WithContext(ctx).
		Where("status = ?", model.VerificationPending).
		Order("created_at").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
