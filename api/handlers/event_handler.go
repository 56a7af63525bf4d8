package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/api/middleware"
	"example.com/eventhub/internal/service"
)

// EventHandler handles event-related requests
type EventHandler struct {
	lifecycle service.LifecycleService
	log       *logrus.Logger
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(lifecycle service.LifecycleService, log *logrus.Logger) *EventHandler {
	return &EventHandler{
		lifecycle: lifecycle,
		log:       log,
	}
}

// CreateEvent handles event creation
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Invalid event format")
		WriteError(c, NewValidationError("Invalid event format"))
		return
	}

	identity, _ := middleware.GetIdentity(c)
	req.CreatorID = identity.SubjectID

	event, err := h.lifecycle.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		h.log.WithError(err).Error("Failed to create event")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// ListEvents handles listing all events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.lifecycle.ListEvents(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list events")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent handles event retrieval
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.lifecycle.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateEvent handles updating an event's simple fields
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req service.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError("Invalid event format"))
		return
	}

	event, err := h.lifecycle.UpdateEvent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.log.WithError(err).Error("Failed to update event")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent handles event deletion
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.lifecycle.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		h.log.WithError(err).Error("Failed to delete event")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event removed",
	})
}
