package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parking-monitor-go/internal/logging"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/violations"
	"parking-monitor-go/internal/store"
)

// HistoryStore reads violations persisted by earlier sessions
type HistoryStore interface {
	History(ctx context.Context, f store.HistoryFilter) ([]models.ViolationRecord, error)
	Snapshot(ctx context.Context, id string) ([]byte, error)
}

type ViolationsHandler struct {
	engine  *violations.Engine
	history HistoryStore
}

// NewViolationsHandler creates the handler. history may be nil when the
// database could not be opened.
func NewViolationsHandler(engine *violations.Engine, history HistoryStore) *ViolationsHandler {
	return &ViolationsHandler{engine: engine, history: history}
}

type ViolationsResponse struct {
	Count      int                      `json:"count"`
	Violations []models.ViolationRecord `json:"violations"`
}

// @Summary List violations of the current session
// @Description Newest first
// @Tags violations
// @Produce json
// @Success 200 {object} ViolationsResponse
// @Router /violations [get]
func (h *ViolationsHandler) List(c *gin.Context) {
	records := h.engine.Records()
	if records == nil {
		records = []models.ViolationRecord{}
	}
	c.JSON(http.StatusOK, ViolationsResponse{Count: len(records), Violations: records})
}

// @Summary Clear violations of the current session
// @Tags violations
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /violations [delete]
func (h *ViolationsHandler) Clear(c *gin.Context) {
	n := h.engine.Count()
	h.engine.Clear()
	logging.Info(c).Int("cleared", n).Msg("Violations cleared")
	c.JSON(http.StatusOK, SuccessResponse{Message: "Violations cleared"})
}

// @Summary Violation snapshot
// @Description JPEG crop of the car when the violation was recorded. Falls back to the history database.
// @Tags violations
// @Produce image/jpeg
// @Param id path string true "Violation ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /violations/{id}/snapshot [get]
func (h *ViolationsHandler) Snapshot(c *gin.Context) {
	id := c.Param("id")
	if r, ok := h.engine.Get(id); ok && len(r.Snapshot) > 0 {
		writeJPEG(c, r.Snapshot)
		return
	}

	if h.history != nil {
		jpeg, err := h.history.Snapshot(c.Request.Context(), id)
		if err == nil && len(jpeg) > 0 {
			writeJPEG(c, jpeg)
			return
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logging.Error(c).Err(err).Str("violation_id", id).Msg("Failed to read snapshot")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "snapshot not found"})
}

// @Summary Violation visualization
// @Description JPEG of the dimmed frame with the car highlighted
// @Tags violations
// @Produce image/jpeg
// @Param id path string true "Violation ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /violations/{id}/visualization [get]
func (h *ViolationsHandler) Visualization(c *gin.Context) {
	r, ok := h.engine.Get(c.Param("id"))
	if !ok || len(r.Visualization) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "visualization not found"})
		return
	}
	writeJPEG(c, r.Visualization)
}

// @Summary Violation history
// @Description Records persisted across sessions, newest first
// @Tags violations
// @Produce json
// @Param session_id query string false "Session ID"
// @Param type query string false "Overstay or WrongSlot"
// @Param since query string false "RFC3339 timestamp"
// @Param limit query int false "Max records (default 500)"
// @Success 200 {object} ViolationsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /violations/history [get]
func (h *ViolationsHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "violation history is disabled"})
		return
	}

	filter := store.HistoryFilter{
		SessionID: c.Query("session_id"),
		Type:      models.ViolationType(c.Query("type")),
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown violation type"})
		return
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "since must be RFC3339"})
			return
		}
		filter.Since = since
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	records, err := h.history.History(c.Request.Context(), filter)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to query violation history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if records == nil {
		records = []models.ViolationRecord{}
	}
	c.JSON(http.StatusOK, ViolationsResponse{Count: len(records), Violations: records})
}
