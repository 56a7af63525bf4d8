package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/internal/cache"
)

// CacheHandler handles cache maintenance requests
type CacheHandler struct {
	cache cache.CacheClient
	log   *logrus.Logger
}

// NewCacheHandler creates a new CacheHandler instance
func NewCacheHandler(cacheClient cache.CacheClient, log *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		cache: cacheClient,
		log:   log,
	}
}

// Flush clears the cached subject registry entries. Used after bulk
// changes in the upstream registry so stale display names are not
// served until their TTL expires.
func (h *CacheHandler) Flush(c *gin.Context) {
	if err := h.cache.FlushAll(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("Failed to flush cache")
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cache flushed",
	})
}
