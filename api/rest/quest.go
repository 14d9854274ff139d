package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ariselabs/arise-server/config"
	"github.com/ariselabs/arise-server/game/quest"
	"github.com/ariselabs/arise-server/game/verification"
	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
)

// QuestHandler exposes the quest lifecycle over REST.
type QuestHandler struct {
	quests *quest.Service
	verif  *verification.Service
	game   config.GameConfig
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(quests *quest.Service, verif *verification.Service, game config.GameConfig) *QuestHandler {
	return &QuestHandler{quests: quests, verif: verif, game: game}
}

// List handles GET /api/quests/:filter where filter is one of
// available|active|completed|daily|emergency|punishment|main.
func (h *QuestHandler) List(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	ctx := c.Request.Context()

	switch filter := c.Param("filter"); filter {
	case "available":
		quests, err := h.quests.Available(ctx, accountID, "")
		h.respondList(c, quests, err)
	case "active":
		views, err := h.quests.Active(ctx, accountID)
		h.respondList(c, views, err)
	case "completed":
		views, err := h.quests.Completed(ctx, accountID)
		h.respondList(c, views, err)
	case model.QuestTypeDaily, model.QuestTypeEmergency, model.QuestTypePunishment, model.QuestTypeMain:
		quests, err := h.quests.Available(ctx, accountID, filter)
		h.respondList(c, quests, err)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unknown quest filter"})
	}
}

func (h *QuestHandler) respondList(c *gin.Context, payload interface{}, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quests": payload})
}

// Accept handles POST /api/quests/:id/accept.
func (h *QuestHandler) Accept(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	questID, ok := h.questID(c)
	if !ok {
		return
	}
	aq, q, err := h.quests.Accept(c.Request.Context(), accountID, questID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quest": q, "active": aq})
}

type progressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

// Progress handles POST /api/quests/:id/progress.
func (h *QuestHandler) Progress(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	questID, ok := h.questID(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "progress is required"})
		return
	}
	aq, err := h.quests.UpdateProgress(c.Request.Context(), accountID, questID, *req.Progress)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "active": aq})
}

// Complete handles POST /api/quests/:id/complete. Expired quests return the
// penalty summary with 200: expiry is an outcome, not a request error.
func (h *QuestHandler) Complete(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	questID, ok := h.questID(c)
	if !ok {
		return
	}
	res, err := h.quests.Complete(c.Request.Context(), accountID, questID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// Abandon handles POST /api/quests/:id/abandon.
func (h *QuestHandler) Abandon(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	questID, ok := h.questID(c)
	if !ok {
		return
	}
	res, err := h.quests.Abandon(c.Request.Context(), accountID, questID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// CreateCustom handles POST /api/quests/custom.
func (h *QuestHandler) CreateCustom(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var in quest.CustomQuestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "error": err.Error()})
		return
	}
	q, aq, err := h.quests.CreateCustom(c.Request.Context(), accountID, in, h.game.CustomQuestMaxHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "quest": q, "active": aq})
}

// SubmitProof handles POST /api/quests/:id/proof.
func (h *QuestHandler) SubmitProof(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	questID, ok := h.questID(c)
	if !ok {
		return
	}
	var in verification.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "error": err.Error()})
		return
	}
	sub, res, err := h.verif.Submit(c.Request.Context(), accountID, questID, in)
	if err != nil {
		h.respondVerifError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "submission": sub, "result": res})
}

func (h *QuestHandler) questID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid quest id"})
		return 0, false
	}
	return id, true
}

func (h *QuestHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quest.ErrQuestNotFound), errors.Is(err, quest.ErrNotActive), errors.Is(err, quest.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, quest.ErrQuestInactive), errors.Is(err, quest.ErrAlreadyActive),
		errors.Is(err, quest.ErrAlreadyCompleted), errors.Is(err, quest.ErrInvalidProgress),
		errors.Is(err, quest.ErrProofRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}

func (h *QuestHandler) respondVerifError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, verification.ErrQuestNotActive), errors.Is(err, verification.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, verification.ErrProofNotRequired), errors.Is(err, verification.ErrPendingReview),
		errors.Is(err, verification.ErrAlreadyVerified), errors.Is(err, verification.ErrAlreadyResolved),
		errors.Is(err, verification.ErrInvalidGPSPayload):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}
