package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-monitor-go/internal/logging"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/slots"
)

// SlotsHandler edits parking slots and their templates
type SlotsHandler struct {
	slots       *slots.Manager
	session     SessionController
	templateDir string
}

func NewSlotsHandler(manager *slots.Manager, session SessionController, templateDir string) *SlotsHandler {
	return &SlotsHandler{slots: manager, session: session, templateDir: templateDir}
}

type SlotRequest struct {
	ID     int            `json:"id,omitempty" example:"1"`
	Points []PointRequest `json:"points" binding:"required"`
}

type ReplaceSlotsRequest struct {
	Slots []SlotRequest `json:"slots"`
}

type SlotResponse struct {
	ID               int               `json:"id"`
	Points           []PointRequest    `json:"points"`
	Status           models.SlotStatus `json:"status" example:"EMPTY"`
	OccupancyPercent float64           `json:"occupancy_percent"`
}

type SlotsResponse struct {
	Template    string             `json:"template,omitempty"`
	Description string             `json:"description,omitempty"`
	Slots       []SlotResponse     `json:"slots"`
	Summary     models.SlotSummary `json:"summary"`
}

type TemplateRequest struct {
	Name        string `json:"name" binding:"required" example:"north_lot"`
	Description string `json:"description" example:"North lot, camera 2"`
}

type TemplatesResponse struct {
	Templates []slots.TemplateInfo `json:"templates"`
}

func toSlotResponse(s models.ParkingSlot) SlotResponse {
	return SlotResponse{
		ID:               s.ID,
		Points:           toPointRequests(s.Polygon),
		Status:           s.Status,
		OccupancyPercent: s.OccupancyPercent,
	}
}

func (h *SlotsHandler) list() SlotsResponse {
	current := h.slots.Slots()
	out := SlotsResponse{
		Template:    h.slots.Name(),
		Description: h.slots.Description(),
		Slots:       make([]SlotResponse, 0, len(current)),
		Summary:     h.slots.Summary(),
	}
	for _, s := range current {
		out.Slots = append(out.Slots, toSlotResponse(s))
	}
	return out
}

// disableParkingIfEmpty turns parking mode off once the last slot is gone
func (h *SlotsHandler) disableParkingIfEmpty(c *gin.Context) {
	if h.slots.Len() == 0 && h.session.ParkingEnabled() {
		_ = h.session.SetParkingMode(false)
		logging.Info(c).Msg("Parking mode disabled, no slots left")
	}
}

// @Summary List slots
// @Tags slots
// @Produce json
// @Success 200 {object} SlotsResponse
// @Router /slots [get]
func (h *SlotsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.list())
}

// @Summary Add a slot
// @Description Append a polygon with at least 3 points. The id is assigned by the monitor.
// @Tags slots
// @Accept json
// @Produce json
// @Param request body SlotRequest true "Polygon"
// @Success 201 {object} SlotResponse
// @Failure 400 {object} ErrorResponse
// @Router /slots [post]
func (h *SlotsHandler) Add(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	slot, err := h.slots.AddSlot(toPolygon(req.Points))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).Int("slot_id", slot.ID).Int("points", len(req.Points)).Msg("Slot added")
	c.JSON(http.StatusCreated, toSlotResponse(slot))
}

// @Summary Replace all slots
// @Tags slots
// @Accept json
// @Produce json
// @Param request body ReplaceSlotsRequest true "Slots"
// @Success 200 {object} SlotsResponse
// @Failure 400 {object} ErrorResponse
// @Router /slots [put]
func (h *SlotsHandler) Replace(c *gin.Context) {
	var req ReplaceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	next := make([]models.ParkingSlot, len(req.Slots))
	for i, s := range req.Slots {
		id := s.ID
		if id == 0 {
			id = i + 1
		}
		next[i] = models.ParkingSlot{ID: id, Polygon: toPolygon(s.Points)}
	}
	if err := h.slots.SetSlots(next); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.disableParkingIfEmpty(c)
	logging.Info(c).Int("slots", len(next)).Msg("Slots replaced")
	c.JSON(http.StatusOK, h.list())
}

// @Summary Remove all slots
// @Description Clears slots and template metadata. Parking mode is switched off.
// @Tags slots
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /slots [delete]
func (h *SlotsHandler) Clear(c *gin.Context) {
	h.slots.Clear()
	h.disableParkingIfEmpty(c)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Slots cleared"})
}

// @Summary Delete a slot
// @Tags slots
// @Produce json
// @Param id path int true "Slot ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /slots/{id} [delete]
func (h *SlotsHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "slot id must be an integer"})
		return
	}

	if err := h.slots.DeleteSlot(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, slots.ErrSlotNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	h.disableParkingIfEmpty(c)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Slot deleted"})
}

// @Summary List templates
// @Tags templates
// @Produce json
// @Success 200 {object} TemplatesResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates [get]
func (h *SlotsHandler) ListTemplates(c *gin.Context) {
	templates, err := slots.ListTemplates(h.templateDir)
	if err != nil {
		logging.Error(c).Err(err).Str("dir", h.templateDir).Msg("Failed to list templates")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if templates == nil {
		templates = []slots.TemplateInfo{}
	}
	c.JSON(http.StatusOK, TemplatesResponse{Templates: templates})
}

// @Summary Load a template
// @Description Replaces the slots with the template and enables parking mode
// @Tags templates
// @Accept json
// @Produce json
// @Param request body TemplateRequest true "Template name"
// @Success 200 {object} SlotsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /templates/load [post]
func (h *SlotsHandler) LoadTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	path, err := slots.TemplatePath(h.templateDir, req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.slots.LoadTemplate(path); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		logging.Warn(c).Err(err).Str("path", path).Msg("Failed to load template")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.session.SetParkingMode(true); err != nil {
		c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("template", req.Name).Int("slots", h.slots.Len()).Msg("Template loaded, parking mode enabled")
	c.JSON(http.StatusOK, h.list())
}

// @Summary Save the current slots as a template
// @Tags templates
// @Accept json
// @Produce json
// @Param request body TemplateRequest true "Template name and description"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /templates/save [post]
func (h *SlotsHandler) SaveTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	path, err := slots.TemplatePath(h.templateDir, req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.slots.SaveTemplate(path, req.Name, req.Description); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, slots.ErrNoSlots) || errors.Is(err, slots.ErrEmptyName) {
			status = http.StatusBadRequest
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).Str("path", path).Int("slots", h.slots.Len()).Msg("Template saved")
	c.JSON(http.StatusOK, SuccessResponse{Message: "Template saved"})
}
