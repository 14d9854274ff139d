package rest

import (
	"net/http"

	"github.com/ariselabs/arise-server/game/leveling"
	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HunterHandler serves the character sheet.
type HunterHandler struct {
	db *gorm.DB
}

// NewHunterHandler creates a HunterHandler.
func NewHunterHandler(db *gorm.DB) *HunterHandler {
	return &HunterHandler{db: db}
}

// Profile handles GET /api/hunter: the full sheet plus the equipped title.
func (h *HunterHandler) Profile(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var acc model.Account
	if err := h.db.First(&acc, accountID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "account not found"})
		return
	}

	var equipped *model.Title
	var ht model.HunterTitle
	if err := h.db.Where("account_id = ? AND equipped = ?", accountID, true).First(&ht).Error; err == nil {
		var t model.Title
		if err := h.db.First(&t, ht.TitleID).Error; err == nil {
			equipped = &t
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": acc,
		"title":   equipped,
	})
}

type allocateRequest struct {
	Strength     int `json:"strength" binding:"min=0"`
	Agility      int `json:"agility" binding:"min=0"`
	Vitality     int `json:"vitality" binding:"min=0"`
	Intelligence int `json:"intelligence" binding:"min=0"`
	Perception   int `json:"perception" binding:"min=0"`
	Sense        int `json:"sense" binding:"min=0"`
}

func (r *allocateRequest) total() int {
	return r.Strength + r.Agility + r.Vitality + r.Intelligence + r.Perception + r.Sense
}

// AllocateStats handles POST /api/hunter/stats: spends unspent stat points.
// Vitality and intelligence raise the HP/MP caps; current HP/MP grow by the
// same delta so spending points never hurts.
func (h *HunterHandler) AllocateStats(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "error": err.Error()})
		return
	}
	total := req.total()
	if total <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "nothing to allocate"})
		return
	}

	var acc model.Account
	if err := h.db.First(&acc, accountID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "account not found"})
		return
	}
	if total > acc.StatPoints {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "not enough stat points"})
		return
	}

	acc.Strength += req.Strength
	acc.Agility += req.Agility
	acc.Vitality += req.Vitality
	acc.Intelligence += req.Intelligence
	acc.Perception += req.Perception
	acc.Sense += req.Sense
	acc.StatPoints -= total

	oldMaxHP, oldMaxMP := acc.MaxHP, acc.MaxMP
	acc.MaxHP = leveling.MaxHP(acc.Level, acc.Vitality)
	acc.MaxMP = leveling.MaxMP(acc.Level, acc.Intelligence)
	acc.HP += acc.MaxHP - oldMaxHP
	acc.MP += acc.MaxMP - oldMaxMP

	if err := h.db.Save(&acc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "account": acc})
}
