package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/api/handlers"
	"example.com/eventhub/api/middleware"
	"example.com/eventhub/internal/cache"
	"example.com/eventhub/internal/service"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(
	r *gin.Engine,
	lifecycle service.LifecycleService,
	notifications service.NotificationService,
	analytics service.AnalyticsService,
	cacheClient cache.CacheClient,
	log *logrus.Logger,
) {
	// Health and metrics
	r.GET("/health", handlers.HealthCheck)
	r.GET("/health/status", handlers.HealthStatus)
	r.GET("/metrics", handlers.Metrics)

	// API routes require an authenticated identity from the gateway
	api := r.Group("/api")
	api.Use(middleware.Authenticate())

	eventHandler := handlers.NewEventHandler(lifecycle, log)
	participationHandler := handlers.NewParticipationHandler(lifecycle, log)
	events := api.Group("/events")
	{
		events.POST("", middleware.RequireAdmin(), eventHandler.CreateEvent)
		events.GET("", eventHandler.ListEvents)
		events.GET("/:id", eventHandler.GetEvent)
		events.PUT("/:id", middleware.RequireAdmin(), eventHandler.UpdateEvent)
		events.DELETE("/:id", middleware.RequireAdmin(), eventHandler.DeleteEvent)

		// Participation lifecycle
		events.POST("/:id/participations", participationHandler.Register)
		events.GET("/:id/participations", middleware.RequireAdmin(), participationHandler.ListParticipants)
		events.PUT("/:id/participations/:pid/status", middleware.RequireAdmin(), participationHandler.SetStatus)
	}

	api.GET("/participations/approved", middleware.RequireAdmin(), participationHandler.ListApproved)

	notificationHandler := handlers.NewNotificationHandler(notifications, log)
	notificationRoutes := api.Group("/notifications", middleware.RequireAdmin())
	{
		notificationRoutes.GET("", notificationHandler.ListNotifications)
		notificationRoutes.POST("/read", notificationHandler.MarkAllRead)
	}

	cacheHandler := handlers.NewCacheHandler(cacheClient, log)
	api.POST("/cache/flush", middleware.RequireAdmin(), cacheHandler.Flush)

	analyticsHandler := handlers.NewAnalyticsHandler(analytics, log)
	analyticsRoutes := api.Group("/analytics", middleware.RequireAdmin())
	{
		analyticsRoutes.GET("/kpis", analyticsHandler.GetKpis)
		analyticsRoutes.GET("/event-popularity", analyticsHandler.GetEventPopularity)
		analyticsRoutes.GET("/user-growth", analyticsHandler.GetGrowthSeries)
	}
}
