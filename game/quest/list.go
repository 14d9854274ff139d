package quest

import (
	"context"
	"time"

	"github.com/ariselabs/arise-server/model"
	"go.uber.org/zap"
)

// ActiveQuestView joins an association with its template for client display.
type ActiveQuestView struct {
	model.ActiveQuest
	Quest model.Quest `json:"quest"`
}

// CompletedQuestView joins a completion record with its template.
type CompletedQuestView struct {
	model.CompletedQuest
	Quest model.Quest `json:"quest"`
}

// Available lists active quest templates the account has neither accepted nor
// completed. questType narrows to one type when non-empty.
func (svc *Service) Available(ctx context.Context, accountID int64, questType string) ([]model.Quest, error) {
	tx := svc.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)",
			svc.db.Model(&model.ActiveQuest{}).Select("quest_id").Where("account_id = ?", accountID)).
		Where("id NOT IN (?)",
			svc.db.Model(&model.CompletedQuest{}).Select("quest_id").Where("account_id = ?", accountID))
	if questType != "" {
		tx = tx.Where("type = ?", questType)
	}
	var quests []model.Quest
	err := tx.Order("id").Find(&quests).Error
	return quests, err
}

// Active lists the account's in-progress quests with their templates.
func (svc *Service) Active(ctx context.Context, accountID int64) ([]ActiveQuestView, error) {
	var rows []model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("deadline").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]ActiveQuestView, 0, len(rows))
	for _, aq := range rows {
		var q model.Quest
		if err := svc.db.WithContext(ctx).First(&q, aq.QuestID).Error; err != nil {
			continue
		}
		views = append(views, ActiveQuestView{ActiveQuest: aq, Quest: q})
	}
	return views, nil
}

// Completed lists the account's completion history, newest first.
func (svc *Service) Completed(ctx context.Context, accountID int64) ([]CompletedQuestView, error) {
	var rows []model.CompletedQuest
	if err := svc.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("completed_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]CompletedQuestView, 0, len(rows))
	for _, cq := range rows {
		var q model.Quest
		if err := svc.db.WithContext(ctx).First(&q, cq.QuestID).Error; err != nil {
			continue
		}
		views = append(views, CompletedQuestView{CompletedQuest: cq, Quest: q})
	}
	return views, nil
}

// CustomQuestInput is the hunter-authored quest payload. Rewards are fixed
// server-side for custom quests so clients cannot self-grant.
type CustomQuestInput struct {
	Title          string `json:"title" binding:"required,max=128"`
	Description    string `json:"description"`
	TimeLimitHours int    `json:"time_limit_hours" binding:"required,min=1"`
}

// Custom quest rewards are flat and modest; the point of a custom quest is
// the habit, not the loot.
const (
	customRewardExperience = 25
	customRewardCurrency   = 10
	customPenaltyXP        = 10
)

// CreateCustom publishes a hunter-authored quest template and immediately
// accepts it for the author. maxHours caps the time limit.
func (svc *Service) CreateCustom(ctx context.Context, accountID int64, in CustomQuestInput, maxHours int) (*model.Quest, *model.ActiveQuest, error) {
	if maxHours > 0 && in.TimeLimitHours > maxHours {
		in.TimeLimitHours = maxHours
	}
	q := &model.Quest{
		Title:             in.Title,
		Description:       in.Description,
		Type:              model.QuestTypeCustom,
		Difficulty:        "E",
		RewardExperience:  customRewardExperience,
		RewardCurrency:    customRewardCurrency,
		PenaltyExperience: customPenaltyXP,
		TimeLimitHours:    in.TimeLimitHours,
		IsActive:          true,
		CreatedBy:         accountID,
	}
	if err := svc.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, nil, err
	}
	aq, _, err := svc.Accept(ctx, accountID, q.ID)
	if err != nil {
		return nil, nil, err
	}
	return q, aq, nil
}

// CreateTemplate publishes an admin-authored quest template.
func (svc *Service) CreateTemplate(ctx context.Context, q *model.Quest) error {
	if q.TimeLimitHours <= 0 {
		q.TimeLimitHours = 24
	}
	q.IsActive = true
	return svc.db.WithContext(ctx).Create(q).Error
}

// ResetDaily clears completion records for daily quests so every hunter can
// take them again. Runs once per day from the scheduler.
func (svc *Service) ResetDaily(ctx context.Context) (int64, error) {
	res := svc.db.WithContext(ctx).
		Where("quest_id IN (?)",
			svc.db.Model(&model.Quest{}).Select("id").Where("type = ?", model.QuestTypeDaily)).
		Delete(&model.CompletedQuest{})
	if res.Error != nil {
		return 0, res.Error
	}
	svc.logger.Info("daily quests reset", zap.Int64("cleared", res.RowsAffected))
	return res.RowsAffected, nil
}

// ExpireOverdue sweeps every active quest past its deadline and runs the
// failure path for each. Called by the scheduler; Complete also catches
// expiry lazily, so the sweep only bounds how stale a missed deadline can get.
func (svc *Service) ExpireOverdue(ctx context.Context) int {
	var overdue []model.ActiveQuest
	if err := svc.db.WithContext(ctx).
		Where("deadline <= ?", time.Now()).
		Find(&overdue).Error; err != nil {
		svc.logger.Error("overdue sweep query failed", zap.Error(err))
		return 0
	}
	expired := 0
	for _, aq := range overdue {
		var q model.Quest
		if err := svc.db.WithContext(ctx).First(&q, aq.QuestID).Error; err != nil {
			continue
		}
		aq := aq
		if _, err := svc.expire(ctx, &aq, &q); err != nil {
			svc.logger.Error("expiry failed",
				zap.Int64("account_id", aq.AccountID),
				zap.Int64("quest_id", aq.QuestID),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired
}
