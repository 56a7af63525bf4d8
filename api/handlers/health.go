package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/eventhub/internal/metrics"
)

// HealthCheck handles health check requests
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "EventHub",
	})
}

// HealthStatus reports health derived from the metrics collector
func HealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetMetricsCollector().GetHealthStatus())
}

// Metrics returns a snapshot of the collected metrics
func Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.GetMetricsCollector().GetMetrics())
}
