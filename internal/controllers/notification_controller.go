package controllers

import (
	"net/http"

	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (nc *NotificationController) GetNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	list, err := nc.notifications.ListForUser(c.Request.Context(), middleware.ActorFromContext(c), unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	respondData(c, http.StatusOK, list)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := nc.notifications.MarkRead(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "isRead": true})
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := nc.notifications.MarkAllRead(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"updated": n})
}
