package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID string
	Version  string
	session  SessionController
}

func NewHealthHandler(workerID, version string, session SessionController) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, session: session}
}

type HealthResponse struct {
	Status       string `json:"status" example:"healthy"`
	WorkerID     string `json:"worker_id" example:"monitor-1"`
	SessionState string `json:"session_state" example:"running"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"monitor-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the monitor is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		WorkerID:     h.WorkerID,
		SessionState: h.session.Stats().State,
	})
}

// @Summary Monitor information
// @Description Get basic monitor information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"video_file",
			"camera",
			"stream_url",
			"still_image",
			"parking_slots",
			"violation_detection",
			"mjpeg_streaming",
		},
	})
}
