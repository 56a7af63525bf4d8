package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/api/middleware"
	"example.com/eventhub/internal/model"
	"example.com/eventhub/internal/service"
)

// ParticipationHandler handles participation lifecycle requests
type ParticipationHandler struct {
	lifecycle service.LifecycleService
	log       *logrus.Logger
}

// NewParticipationHandler creates a new ParticipationHandler instance
func NewParticipationHandler(lifecycle service.LifecycleService, log *logrus.Logger) *ParticipationHandler {
	return &ParticipationHandler{
		lifecycle: lifecycle,
		log:       log,
	}
}

// Register handles a participation request for the authenticated subject
func (h *ParticipationHandler) Register(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)

	participation, err := h.lifecycle.Register(c.Request.Context(), c.Param("id"), identity.SubjectID)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participation)
}

// ListParticipants lists the participants of an event, optionally
// filtered by status
func (h *ParticipationHandler) ListParticipants(c *gin.Context) {
	var status *model.ParticipationStatus
	if statusStr := c.Query("status"); statusStr != "" {
		parsed, ok := model.StatusFromString(statusStr)
		if !ok {
			WriteError(c, NewValidationError("Unknown participation status"))
			return
		}
		status = &parsed
	}

	participations, err := h.lifecycle.ListParticipants(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, participations)
}

// SetStatus applies an approve or reject transition
func (h *ParticipationHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, NewValidationError("Status is required"))
		return
	}

	status, ok := model.StatusFromString(req.Status)
	if !ok || !status.Terminal() {
		WriteError(c, NewValidationError("Status must be Approved or Rejected"))
		return
	}

	participation, err := h.lifecycle.SetStatus(c.Request.Context(), c.Param("id"), c.Param("pid"), status)
	if err != nil {
		h.log.WithError(err).Warn("Failed to update participant status")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, participation)
}

// ListApproved returns the approved roster across all events
func (h *ParticipationHandler) ListApproved(c *gin.Context) {
	participations, err := h.lifecycle.ListApprovedAcrossEvents(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list approved participants")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, participations)
}
