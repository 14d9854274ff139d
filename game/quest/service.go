package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariselabs/arise-server/audit"
	"github.com/ariselabs/arise-server/game/leveling"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Lifecycle errors, mapped to HTTP status codes by the REST layer.
var (
	ErrQuestNotFound    = errors.New("quest not found")
	ErrQuestInactive    = errors.New("quest is not available")
	ErrAlreadyActive    = errors.New("quest already active for this account")
	ErrAlreadyCompleted = errors.New("quest already completed by this account")
	ErrNotActive        = errors.New("quest is not active for this account")
	ErrInvalidProgress  = errors.New("progress must be between 0 and 100")
	ErrProofRequired    = errors.New("quest requires verified proof")
	ErrAccountNotFound  = errors.New("account not found")
)

// Result summarizes the outcome of Complete or Abandon. Exactly one of the
// reward fields or the penalty fields is populated: an expired or abandoned
// quest never also grants rewards.
type Result struct {
	Expired   bool `json:"expired"`
	Abandoned bool `json:"abandoned"`

	ExperienceGained int64         `json:"experience_gained"`
	CurrencyGained   int64         `json:"currency_gained"`
	StatPointsGained int           `json:"stat_points_gained"`
	Drops            []DropResult  `json:"drops,omitempty"`
	Shadow           *model.Shadow `json:"shadow,omitempty"`

	LevelsGained int    `json:"levels_gained"`
	LeveledUp    bool   `json:"leveled_up"`
	Level        int    `json:"level"`
	Rank         string `json:"rank"`

	PenaltyExperience int64 `json:"penalty_experience"`
	PenaltyCurrency   int64 `json:"penalty_currency"`
}

// Service drives the per-account quest lifecycle:
// available → active → completed | abandoned | expired.
type Service struct {
	db       *gorm.DB
	notifier *notify.Service
	auditor  *audit.Service
	roll     func() float64 // drop rolls, injectable for tests
	logger   *zap.Logger
}

// NewService creates a quest Service. roll may be nil to use the default
// random source.
func NewService(db *gorm.DB, notifier *notify.Service, auditor *audit.Service, roll func() float64, logger *zap.Logger) *Service {
	if roll == nil {
		roll = defaultRoll
	}
	return &Service{db: db, notifier: notifier, auditor: auditor, roll: roll, logger: logger}
}

// Accept activates a quest for an account. Fails if the quest is unknown or
// inactive, already active, or already completed for this account. The
// deadline is now + time_limit_hours. Single-row mutation, no rollback needed.
func (svc *Service) Accept(ctx context.Context, accountID, questID int64) (*model.ActiveQuest, *model.Quest, error) {
	var q model.Quest
	if err := svc.db.WithContext(ctx).First(&q, questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrQuestNotFound
		}
		return nil, nil, err
	}
	if !q.IsActive {
		return nil, nil, ErrQuestInactive
	}

	var existing model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&existing).Error; err == nil {
		return nil, nil, ErrAlreadyActive
	}
	var done model.CompletedQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&done).Error; err == nil {
		return nil, nil, ErrAlreadyCompleted
	}

	now := time.Now()
	aq := &model.ActiveQuest{
		AccountID: accountID,
		QuestID:   questID,
		Progress:  0,
		StartedAt: now,
		Deadline:  now.Add(time.Duration(q.TimeLimitHours) * time.Hour),
	}
	if err := svc.db.WithContext(ctx).Create(aq).Error; err != nil {
		return nil, nil, err
	}

	if svc.notifier != nil {
		svc.notifier.PushEvent(accountID, model.NotifyQuestAccepted, map[string]interface{}{
			"quest_id": q.ID,
			"title":    q.Title,
			"deadline": aq.Deadline,
		})
	}
	return aq, &q, nil
}

// UpdateProgress overwrites the association's progress, last-write-wins.
// Regression is allowed; the source of truth is whatever the client last
// reported.
func (svc *Service) UpdateProgress(ctx context.Context, accountID, questID int64, progress int) (*model.ActiveQuest, error) {
	if progress < 0 || progress > 100 {
		return nil, ErrInvalidProgress
	}
	var aq model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&aq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	aq.Progress = progress
	if err := svc.db.WithContext(ctx).Save(&aq).Error; err != nil {
		return nil, err
	}
	return &aq, nil
}

// Complete finishes an active quest. If the deadline has passed the expiry
// path runs instead: the penalty bundle is applied (clamped at zero), the
// association is removed, and the Result reports Expired without any reward.
// A quest whose template demands proof must have a verified submission.
func (svc *Service) Complete(ctx context.Context, accountID, questID int64) (*Result, error) {
	return svc.complete(ctx, accountID, questID, false)
}

// CompleteVerified is the entry point for the verification service once a
// submission has been verified; it bypasses the proof gate but keeps every
// other check, including expiry.
func (svc *Service) CompleteVerified(ctx context.Context, accountID, questID int64) (*Result, error) {
	return svc.complete(ctx, accountID, questID, true)
}

func (svc *Service) complete(ctx context.Context, accountID, questID int64, proofVerified bool) (*Result, error) {
	var aq model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&aq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	var q model.Quest
	if err := svc.db.WithContext(ctx).First(&q, questID).Error; err != nil {
		return nil, ErrQuestNotFound
	}

	// Expiry path wins over everything else, proof included: a late quest
	// is failed, never rewarded.
	if time.Now().After(aq.Deadline) {
		return svc.expire(ctx, &aq, &q)
	}

	if q.RequiresProof && q.VerificationMethod != model.VerifyNone && !proofVerified {
		if !svc.hasVerifiedSubmission(ctx, accountID, questID) {
			return nil, ErrProofRequired
		}
	}

	acc, err := svc.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ExperienceGained: q.RewardExperience,
		CurrencyGained:   q.RewardCurrency,
		StatPointsGained: q.RewardStatPoints,
	}

	res.LevelsGained = leveling.Apply(acc, q.RewardExperience)
	res.LeveledUp = res.LevelsGained > 0
	acc.Currency += q.RewardCurrency
	acc.StatPoints += q.RewardStatPoints
	res.Level = acc.Level
	res.Rank = acc.Rank

	if err := svc.db.WithContext(ctx).Save(acc).Error; err != nil {
		return nil, err
	}

	res.Drops = svc.rollDrops(ctx, accountID, &q)
	if q.ShadowReward != "" {
		res.Shadow = svc.extractShadow(ctx, accountID, &q)
	}
	if res.LeveledUp {
		svc.grantUnlocks(ctx, acc)
	}

	if err := svc.db.WithContext(ctx).Delete(&aq).Error; err != nil {
		return nil, err
	}
	if err := svc.db.WithContext(ctx).Create(&model.CompletedQuest{
		AccountID: accountID,
		QuestID:   questID,
	}).Error; err != nil {
		return nil, err
	}

	svc.logger.Info("quest completed",
		zap.Int64("account_id", accountID),
		zap.Int64("quest_id", questID),
		zap.Int("levels_gained", res.LevelsGained))
	if svc.auditor != nil {
		svc.auditor.Log(audit.Entry{
			AccountID: &accountID,
			Action:    "quest_complete",
			Request:   map[string]int64{"quest_id": questID},
			Response:  res,
		})
	}
	if svc.notifier != nil {
		svc.notifier.Notify(ctx, accountID, model.NotifyQuestCompleted,
			"Quest Complete", fmt.Sprintf("%s cleared. +%d XP, +%d gold.", q.Title, q.RewardExperience, q.RewardCurrency))
		svc.notifier.PushEvent(accountID, model.NotifyQuestCompleted, res)
		if res.LeveledUp {
			svc.notifier.Notify(ctx, accountID, model.NotifyLevelUp,
				"Level Up", fmt.Sprintf("You reached level %d (rank %s).", acc.Level, acc.Rank))
		}
	}
	return res, nil
}

// Abandon unconditionally applies the penalty bundle and removes the
// association. There is no completion path from here.
func (svc *Service) Abandon(ctx context.Context, accountID, questID int64) (*Result, error) {
	var aq model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ?", accountID, questID).
		First(&aq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	var q model.Quest
	if err := svc.db.WithContext(ctx).First(&q, questID).Error; err != nil {
		return nil, ErrQuestNotFound
	}

	res, err := svc.penalize(ctx, &aq, &q)
	if err != nil {
		return nil, err
	}
	res.Abandoned = true

	if svc.auditor != nil {
		svc.auditor.Log(audit.Entry{
			AccountID: &accountID,
			Action:    "quest_abandon",
			Request:   map[string]int64{"quest_id": questID},
			Response:  res,
		})
	}
	if svc.notifier != nil {
		svc.notifier.Notify(ctx, accountID, model.NotifyQuestFailed,
			"Quest Abandoned", fmt.Sprintf("%s abandoned. -%d XP, -%d gold.", q.Title, q.PenaltyExperience, q.PenaltyCurrency))
		svc.notifier.PushEvent(accountID, model.NotifyQuestFailed, res)
	}
	return res, nil
}

// expire runs the failure path for an overdue quest: penalty, association
// removed, nothing added to completed quests.
func (svc *Service) expire(ctx context.Context, aq *model.ActiveQuest, q *model.Quest) (*Result, error) {
	res, err := svc.penalize(ctx, aq, q)
	if err != nil {
		return nil, err
	}
	res.Expired = true

	svc.logger.Info("quest expired",
		zap.Int64("account_id", aq.AccountID),
		zap.Int64("quest_id", aq.QuestID))
	if svc.auditor != nil {
		svc.auditor.Log(audit.Entry{
			AccountID: &aq.AccountID,
			Action:    "quest_expire",
			Request:   map[string]int64{"quest_id": aq.QuestID},
			Response:  res,
		})
	}
	if svc.notifier != nil {
		svc.notifier.Notify(ctx, aq.AccountID, model.NotifyQuestFailed,
			"Quest Failed", fmt.Sprintf("%s expired. -%d XP, -%d gold.", q.Title, q.PenaltyExperience, q.PenaltyCurrency))
		svc.notifier.PushEvent(aq.AccountID, model.NotifyQuestFailed, res)
	}
	return res, nil
}

func (svc *Service) penalize(ctx context.Context, aq *model.ActiveQuest, q *model.Quest) (*Result, error) {
	acc, err := svc.loadAccount(ctx, aq.AccountID)
	if err != nil {
		return nil, err
	}
	leveling.ApplyPenalty(acc, q.PenaltyExperience, q.PenaltyCurrency)
	if err := svc.db.WithContext(ctx).Save(acc).Error; err != nil {
		return nil, err
	}
	if err := svc.db.WithContext(ctx).Delete(aq).Error; err != nil {
		return nil, err
	}
	return &Result{
		PenaltyExperience: q.PenaltyExperience,
		PenaltyCurrency:   q.PenaltyCurrency,
		Level:             acc.Level,
		Rank:              acc.Rank,
	}, nil
}

func (svc *Service) loadAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	var acc model.Account
	if err := svc.db.WithContext(ctx).First(&acc, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (svc *Service) hasVerifiedSubmission(ctx context.Context, accountID, questID int64) bool {
	var sub model.VerificationSubmission
	err := svc.db.WithContext(ctx).
		Where("account_id = ? AND quest_id = ? AND status = ?",
			accountID, questID, model.VerificationVerified).
		First(&sub).Error
	return err == nil
}

// grantUnlocks hands out catalog skills and titles whose unlock level the
// account has just reached.
func (svc *Service) grantUnlocks(ctx context.Context, acc *model.Account) {
	var skills []model.Skill
	svc.db.WithContext(ctx).Where("unlock_level <= ?", acc.Level).Find(&skills)
	for _, sk := range skills {
		var owned model.HunterSkill
		if err := svc.db.WithContext(ctx).
			Where("account_id = ? AND skill_id = ?", acc.ID, sk.ID).
			First(&owned).Error; err == nil {
			continue
		}
		svc.db.WithContext(ctx).Create(&model.HunterSkill{AccountID: acc.ID, SkillID: sk.ID, Level: 1})
	}

	var titles []model.Title
	svc.db.WithContext(ctx).Where("required_level <= ?", acc.Level).Find(&titles)
	for _, ti := range titles {
		var owned model.HunterTitle
		if err := svc.db.WithContext(ctx).
			Where("account_id = ? AND title_id = ?", acc.ID, ti.ID).
			First(&owned).Error; err == nil {
			continue
		}
		svc.db.WithContext(ctx).Create(&model.HunterTitle{AccountID: acc.ID, TitleID: ti.ID})
	}
}

// extractShadow creates the quest's shadow soldier for the account ("arise").
// Duplicate extraction from the same quest is prevented by the completed
// check in Accept.
func (svc *Service) extractShadow(ctx context.Context, accountID int64, q *model.Quest) *model.Shadow {
	sh := &model.Shadow{
		AccountID:   accountID,
		Name:        q.ShadowReward,
		Rank:        q.Difficulty,
		Level:       1,
		SourceQuest: q.ID,
	}
	if err := svc.db.WithContext(ctx).Create(sh).Error; err != nil {
		svc.logger.Error("shadow extraction failed",
			zap.Int64("account_id", accountID),
			zap.Error(err))
		return nil
	}
	return sh
}
