package rest

import (
	"net/http"
	"strconv"

	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CollectionHandler serves the account's acquired items, skills, titles and
// shadows.
type CollectionHandler struct {
	db *gorm.DB
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(db *gorm.DB) *CollectionHandler {
	return &CollectionHandler{db: db}
}

type inventoryEntry struct {
	model.HunterItem
	Item model.Item `json:"item"`
}

// Inventory handles GET /api/collection/items.
func (h *CollectionHandler) Inventory(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var stacks []model.HunterItem
	if err := h.db.Where("account_id = ?", accountID).Find(&stacks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	entries := make([]inventoryEntry, 0, len(stacks))
	for _, st := range stacks {
		var item model.Item
		if err := h.db.First(&item, st.ItemID).Error; err != nil {
			continue
		}
		entries = append(entries, inventoryEntry{HunterItem: st, Item: item})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": entries})
}

type skillEntry struct {
	model.HunterSkill
	Skill model.Skill `json:"skill"`
}

// Skills handles GET /api/collection/skills.
func (h *CollectionHandler) Skills(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var owned []model.HunterSkill
	if err := h.db.Where("account_id = ?", accountID).Find(&owned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	entries := make([]skillEntry, 0, len(owned))
	for _, hs := range owned {
		var sk model.Skill
		if err := h.db.First(&sk, hs.SkillID).Error; err != nil {
			continue
		}
		entries = append(entries, skillEntry{HunterSkill: hs, Skill: sk})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "skills": entries})
}

type titleEntry struct {
	model.HunterTitle
	Title model.Title `json:"title"`
}

// Titles handles GET /api/collection/titles.
func (h *CollectionHandler) Titles(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var owned []model.HunterTitle
	if err := h.db.Where("account_id = ?", accountID).Find(&owned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	entries := make([]titleEntry, 0, len(owned))
	for _, ht := range owned {
		var t model.Title
		if err := h.db.First(&t, ht.TitleID).Error; err != nil {
			continue
		}
		entries = append(entries, titleEntry{HunterTitle: ht, Title: t})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "titles": entries})
}

// EquipTitle handles POST /api/collection/titles/:id/equip. At most one title
// is equipped; equipping swaps atomically.
func (h *CollectionHandler) EquipTitle(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	titleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || titleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid title id"})
		return
	}

	var ht model.HunterTitle
	if err := h.db.Where("account_id = ? AND title_id = ?", accountID, titleID).First(&ht).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "title not earned"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.HunterTitle{}).
			Where("account_id = ?", accountID).
			Update("equipped", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.HunterTitle{}).
			Where("id = ?", ht.ID).
			Update("equipped", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "equip failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Shadows handles GET /api/collection/shadows.
func (h *CollectionHandler) Shadows(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var shadows []model.Shadow
	if err := h.db.Where("account_id = ?", accountID).Order("extracted_at").Find(&shadows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shadows": shadows})
}
