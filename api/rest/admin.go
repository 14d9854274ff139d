package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariselabs/arise-server/audit"
	"github.com/ariselabs/arise-server/cache"
	"github.com/ariselabs/arise-server/game/quest"
	"github.com/ariselabs/arise-server/game/verification"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles operator-only REST endpoints.
// Routes must be protected by AdminAuth middleware.
type AdminHandler struct {
	db       *gorm.DB
	quests   *quest.Service
	verif    *verification.Service
	notifier *notify.Service
	auditor  *audit.Service
	pubsub   cache.PubSub
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	quests *quest.Service,
	verif *verification.Service,
	notifier *notify.Service,
	auditor *audit.Service,
	ps cache.PubSub,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		db:       db,
		quests:   quests,
		verif:    verif,
		notifier: notifier,
		auditor:  auditor,
		pubsub:   ps,
		logger:   logger,
	}
}


// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var hunters, activeQuests, pendingReviews int64
	h.db.Model(&model.Account{}).Count(&hunters)
	h.db.Model(&model.ActiveQuest{}).Count(&activeQuests)
	h.db.Model(&model.VerificationSubmission{}).
		Where("status = ?", model.VerificationPending).Count(&pendingReviews)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"hunters":         hunters,
		"online":          h.notifier.Hub().Count(),
		"active_quests":   activeQuests,
		"pending_reviews": pendingReviews,
	})
}

// BanAccount bans or unbans an account and drops its live connection.
// POST /api/admin/accounts/:id/ban
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}

	status := 1
	if req.Ban {
		status = 0
	}
	res := h.db.Model(&model.Account{}).Where("id = ?", accountID).Update("status", status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "account not found"})
		return
	}
	if req.Ban {
		if s := h.notifier.Hub().Get(accountID); s != nil {
			s.Close()
		}
	}

	h.logger.Info("admin ban update",
		zap.Int64("account_id", accountID),
		zap.Bool("banned", req.Ban))
	h.auditor.Log(audit.Entry{
		AccountID: &accountID,
		Action:    "admin_ban",
		Request:   req,
		IP:        c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "banned": req.Ban})
}

// PendingVerifications lists submissions awaiting manual review.
// GET /api/admin/verifications
func (h *AdminHandler) PendingVerifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.verif.Pending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "submissions": rows, "count": len(rows)})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" binding:"max=512"`
}

// ReviewVerification records a verdict on a pending submission.
// POST /api/admin/verifications/:id/review
func (h *AdminHandler) ReviewVerification(c *gin.Context) {
	submissionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}

	// Admin routes authenticate by key, not account; reviewer 0 marks a
	// key-authenticated operator.
	sub, res, err := h.verif.Review(c.Request.Context(), 0, submissionID, req.Approve, req.Note)
	if err != nil {
		switch err {
		case verification.ErrSubmissionNotFound:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
		case verification.ErrAlreadyResolved:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "review failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "submission": sub, "result": res})
}

// CreateQuest publishes a system quest template.
// POST /api/admin/quests
func (h *AdminHandler) CreateQuest(c *gin.Context) {
	var q model.Quest
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request", "error": err.Error()})
		return
	}
	if q.Title == "" || q.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "title and type are required"})
		return
	}
	q.ID = 0
	q.CreatedBy = 0
	if err := h.quests.CreateTemplate(c.Request.Context(), &q); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "create failed"})
		return
	}
	h.auditor.Log(audit.Entry{
		Action:  "admin_create_quest",
		Request: q,
		IP:      c.ClientIP(),
	})
	c.JSON(http.StatusCreated, gin.H{"success": true, "quest": q})
}

type announceRequest struct {
	Title   string `json:"title" binding:"required,max=128"`
	Message string `json:"message" binding:"required,max=2000"`
}

// Announce broadcasts a system message to every connected hunter.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}
	h.notifier.Hub().Broadcast(notify.NewEnvelope(model.NotifySystem, gin.H{
		"title":   req.Title,
		"message": req.Message,
	}))
	// Mirror onto the announcement channel for SSE listeners.
	if payload, err := json.Marshal(req); err == nil {
		if err := h.pubsub.Publish(c.Request.Context(), notify.AnnouncementChannel, string(payload)); err != nil {
			h.logger.Warn("announcement publish failed", zap.Error(err))
		}
	}
	h.auditor.Log(audit.Entry{
		Action:  "admin_announce",
		Request: req,
		IP:      c.ClientIP(),
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "delivered": h.notifier.Hub().Count()})
}

// AuditTrail returns the newest audit rows.
// GET /api/admin/audit
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.auditor.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entries": rows})
}

// AdminAuth guards admin routes with a static key header.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"success": false, "message": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}
		c.Next()
	}
}
