package model

import (
	"time"

	"gorm.io/datatypes"
)

// Item is a catalog entry purchasable in the shop or dropped by quests.
type Item struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Rarity      string         `gorm:"size:1;default:E" json:"rarity"`
	Price       int64          `gorm:"default:0" json:"price"` // 0 = not sold in shop
	Effect      datatypes.JSON `json:"effect"`                 // e.g. {"hp": 50} or {"stat": "strength", "amount": 1}
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// HunterItem is a single item stack in an account's inventory.
type HunterItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"uniqueIndex:idx_inv_acc_item;not null" json:"account_id"`
	ItemID    int64     `gorm:"uniqueIndex:idx_inv_acc_item;not null" json:"item_id"`
	Qty       int       `gorm:"default:1" json:"qty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
