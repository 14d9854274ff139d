package rest

import (
	"context"
	"net/http"
	"strconv"

	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/notify"
	"github.com/gin-gonic/gin"
)

// NotificationHandler is the REST fallback for the notification inbox; the
// WebSocket channel is the primary delivery path.
type NotificationHandler struct {
	notifier *notify.Service
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifier *notify.Service) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// Unread handles GET /api/notifications.
func (h *NotificationHandler) Unread(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	rows, err := h.notifier.Unread(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": rows, "count": len(rows)})
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.mark(c, h.notifier.MarkRead)
}

// MarkDisplayed handles POST /api/notifications/:id/displayed.
func (h *NotificationHandler) MarkDisplayed(c *gin.Context) {
	h.mark(c, h.notifier.MarkDisplayed)
}

func (h *NotificationHandler) mark(c *gin.Context, fn func(context.Context, int64, int64) error) {
	accountID := mw.GetAccountID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid notification id"})
		return
	}
	if err := fn(c.Request.Context(), accountID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
