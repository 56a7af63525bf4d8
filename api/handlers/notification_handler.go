package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/internal/service"
)

// NotificationHandler handles notification feed requests
type NotificationHandler struct {
	notifications service.NotificationService
	log           *logrus.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notifications service.NotificationService, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		log:           log,
	}
}

// ListNotifications returns the most recent notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit := service.DefaultNotificationLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			WriteError(c, NewValidationError("Invalid limit"))
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list notifications")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkAllRead marks every unread notification as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notifications.MarkAllRead(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to mark notifications read")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked read",
		"count":   count,
	})
}
