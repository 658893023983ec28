package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zippdf/zippdf/internal/api/models"
	"github.com/zippdf/zippdf/internal/cache"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/scheduler"
)

// StatusProvider is the part of the engine the status API reads from.
type StatusProvider interface {
	Tracker() *convert.Tracker
	GetScheduler() *scheduler.Scheduler
	PendingStats() *cache.Stats
	StartedAt() time.Time
	BotUsername() string
}

type Handler struct {
	status StatusProvider
}

func New(status StatusProvider) *Handler {
	return &Handler{status: status}
}

// Health reports that the process is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status: "ok",
		Bot:    h.status.BotUsername(),
		Uptime: time.Since(h.status.StartedAt()).Round(time.Second).String(),
	})
}

// Stats returns the conversion counters, the pending cache statistics and the scheduled jobs.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatsResponse{
		StartedAt:  h.status.StartedAt(),
		Conversion: models.ToConversionStats(h.status.Tracker().Stats()),
		Cache:      models.ToCacheStats(h.status.PendingStats()),
		Jobs:       h.status.GetScheduler().GetJobs(),
	})
}

// Jobs returns the running conversions and the recent history.
func (h *Handler) Jobs(c *gin.Context) {
	tracker := h.status.Tracker()
	c.JSON(http.StatusOK, models.JobsResponse{
		Active:  models.ToJobItems(tracker.Active()),
		History: models.ToJobItems(tracker.History()),
	})
}

// Job returns a single job by id, running or finished.
func (h *Handler) Job(c *gin.Context) {
	id := c.Param("id")
	tracker := h.status.Tracker()
	for _, list := range [][]convert.JobInfo{tracker.Active(), tracker.History()} {
		for _, j := range list {
			if j.ID == id {
				c.JSON(http.StatusOK, models.ToJobItem(j))
				return
			}
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error":   "Job not found",
	})
}
