package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eapayk/quanlitien/assetcache"
	"github.com/eapayk/quanlitien/scheduler"
)

// AdminHandler exposes the operational endpoints: scheduler state and asset
// cache statistics.
type AdminHandler struct {
	sched  *scheduler.Scheduler
	worker *assetcache.Worker
}

// NewAdminHandler creates a new admin API handler.
func NewAdminHandler(sched *scheduler.Scheduler, worker *assetcache.Worker) *AdminHandler {
	return &AdminHandler{sched: sched, worker: worker}
}

// GetSchedulerJobs returns all scheduler jobs as JSON.
func (h *AdminHandler) GetSchedulerJobs(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not running"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    h.sched.Jobs(),
	})
}

// RunSchedulerJob manually triggers a scheduler job.
func (h *AdminHandler) RunSchedulerJob(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler is not running"})
		return
	}

	if err := h.sched.RunJobNow(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "job triggered",
	})
}

// GetCacheStats returns the asset cache hit and miss counters.
func (h *AdminHandler) GetCacheStats(c *gin.Context) {
	if h.worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset cache is not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cache": h.worker.CacheName(),
		"stats": h.worker.Stats(),
	})
}
