package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/internal/service"
)

// AnalyticsHandler handles dashboard analytics requests
type AnalyticsHandler struct {
	analytics service.AnalyticsService
	log       *logrus.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler instance
func NewAnalyticsHandler(analytics service.AnalyticsService, log *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		log:       log,
	}
}

// GetKpis returns the dashboard headline counts
func (h *AnalyticsHandler) GetKpis(c *gin.Context) {
	summary, err := h.analytics.KpiSummary(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to compute KPI summary")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetEventPopularity returns approved participation counts per event
func (h *AnalyticsHandler) GetEventPopularity(c *gin.Context) {
	popularity, err := h.analytics.EventPopularity(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to compute event popularity")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, popularity)
}

// GetGrowthSeries returns subject creations bucketed by month
func (h *AnalyticsHandler) GetGrowthSeries(c *gin.Context) {
	series, err := h.analytics.GrowthSeries(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to compute growth series")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, series)
}
