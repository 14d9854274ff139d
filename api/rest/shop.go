package rest

import (
	"errors"
	"net/http"

	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShopHandler sells catalog items for currency.
type ShopHandler struct {
	db *gorm.DB
}

// NewShopHandler creates a ShopHandler.
func NewShopHandler(db *gorm.DB) *ShopHandler {
	return &ShopHandler{db: db}
}

// List handles GET /api/shop: items with a nonzero price.
func (h *ShopHandler) List(c *gin.Context) {
	var items []model.Item
	if err := h.db.Where("price > 0").Order("price").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

type buyRequest struct {
	ItemID int64 `json:"item_id" binding:"required"`
	Qty    int   `json:"qty" binding:"omitempty,min=1,max=99"`
}

// Buy handles POST /api/shop/buy. Deduction and inventory grant run in one
// transaction so a failed grant never eats the gold.
func (h *ShopHandler) Buy(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "error": err.Error()})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	var item model.Item
	if err := h.db.First(&item, req.ItemID).Error; err != nil || item.Price <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "item not sold here"})
		return
	}
	cost := item.Price * int64(req.Qty)

	var acc model.Account
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&acc, accountID).Error; err != nil {
			return err
		}
		if acc.Currency < cost {
			return errInsufficientFunds
		}
		acc.Currency -= cost
		if err := tx.Save(&acc).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"qty": gorm.Expr("qty + ?", req.Qty)}),
		}).Create(&model.HunterItem{
			AccountID: accountID,
			ItemID:    req.ItemID,
			Qty:       req.Qty,
		}).Error
	})
	if errors.Is(err, errInsufficientFunds) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "not enough gold"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "purchase failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"item":     item,
		"qty":      req.Qty,
		"cost":     cost,
		"currency": acc.Currency,
	})
}

var errInsufficientFunds = errors.New("not enough gold")
