package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marcusng88/AI-Chatbot/internal/models"
)

// Health reports service status along with archive counts in the
// database and the search index.
func (h *handler) Health(c *gin.Context) {
	indexCount, err := h.index.Count()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "search index unavailable"})
		return
	}

	var dbCount int64
	if err := h.db.Model(&models.Archive{}).Count(&dbCount).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "database unavailable"})
		return
	}

	redisOK := false
	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		redisOK = h.redisClient.Ping(ctx).Err() == nil
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"archives_in_db":    dbCount,
		"archives_in_index": indexCount,
		"cache_available":   redisOK,
		"ai_available":      h.genaiClient.Enabled(),
	})
}
