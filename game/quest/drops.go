package quest

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/ariselabs/arise-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DropResult is one item granted from a quest's drop table.
type DropResult struct {
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`
	Qty    int    `json:"qty"`
}

func defaultRoll() float64 {
	return rand.Float64()
}

// rollDrops rolls the quest's drop table and credits won items to the
// account's inventory. Each entry is an independent percentage roll; a
// malformed table is logged and skipped rather than failing the completion.
func (svc *Service) rollDrops(ctx context.Context, accountID int64, q *model.Quest) []DropResult {
	if len(q.RewardItems) == 0 {
		return nil
	}
	var table []model.ItemDrop
	if err := json.Unmarshal(q.RewardItems, &table); err != nil {
		svc.logger.Warn("malformed drop table",
			zap.Int64("quest_id", q.ID),
			zap.Error(err))
		return nil
	}

	var won []DropResult
	for _, entry := range table {
		if entry.Qty <= 0 {
			entry.Qty = 1
		}
		if svc.roll()*100 >= entry.Rate {
			continue
		}
		itemID := int64(entry.ItemID)
		var item model.Item
		if err := svc.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
			svc.logger.Warn("drop table references unknown item",
				zap.Int64("quest_id", q.ID),
				zap.Int64("item_id", itemID))
			continue
		}
		if err := svc.grantItem(ctx, accountID, itemID, entry.Qty); err != nil {
			svc.logger.Error("item grant failed",
				zap.Int64("account_id", accountID),
				zap.Int64("item_id", itemID),
				zap.Error(err))
			continue
		}
		won = append(won, DropResult{ItemID: itemID, Name: item.Name, Qty: entry.Qty})
	}
	return won
}

// grantItem upserts an inventory stack, incrementing qty on conflict.
func (svc *Service) grantItem(ctx context.Context, accountID, itemID int64, qty int) error {
	return svc.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"qty": gorm.Expr("qty + ?", qty)}),
	}).Create(&model.HunterItem{
		AccountID: accountID,
		ItemID:    itemID,
		Qty:       qty,
	}).Error
}
