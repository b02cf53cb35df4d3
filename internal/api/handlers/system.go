package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"parking-monitor-go/internal/metrics"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	metrics   *metrics.Metrics
	session   SessionController
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, m *metrics.Metrics, session SessionController) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
		metrics:   m,
		session:   session,
	}
}

// @Summary Get system stats
// @Description Get runtime statistics and pipeline counters
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := h.session.Stats()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"worker_id":      h.WorkerID,
			"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
			"memory_mb":      m.Alloc / 1024 / 1024,
			"cpu_cores":      runtime.NumCPU(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
		"pipeline": gin.H{
			"state":            stats.State,
			"frames_captured":  h.metrics.FramesCaptured.Load(),
			"frames_processed": h.metrics.FramesProcessed.Load(),
			"frames_dropped":   h.metrics.FramesDropped.Load(),
			"frames_rendered":  h.metrics.FramesRendered.Load(),
			"read_errors":      h.metrics.ReadErrors.Load(),
			"inference_errors": h.metrics.InferenceErrors.Load(),
			"render_errors":    h.metrics.RenderErrors.Load(),
			"inference_ms":     h.metrics.InferenceLatencyMs.Load(),
			"render_fps":       stats.RenderFPS,
		},
		"timestamp": time.Now().Unix(),
	})
}
