package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"parking-monitor-go/internal/logging"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
	"parking-monitor-go/internal/services/pipeline"
)

// SessionController runs the capture, inference and render pipeline
type SessionController interface {
	Open(ctx context.Context, spec models.SourceSpec) error
	Stop() error
	Seek(frameIndex int64) error
	ProcessStill(ctx context.Context, path string, parkingEnabled bool) (*models.ProcessedFrame, error)
	SetParkingMode(enabled bool) error
	ParkingEnabled() bool
	Stats() models.SessionStats
	AppState() models.AppState
}

// FrameStreamer serves the rendered output
type FrameStreamer interface {
	LatestJPEG() ([]byte, bool)
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
}

type SessionHandler struct {
	session  SessionController
	streamer FrameStreamer
}

func NewSessionHandler(session SessionController, streamer FrameStreamer) *SessionHandler {
	return &SessionHandler{session: session, streamer: streamer}
}

type OpenSessionRequest struct {
	Source         string `json:"source" binding:"required" example:"videos/lot.mp4"`
	Kind           string `json:"kind" binding:"required" example:"file" enums:"file,url,camera,image"`
	ParkingEnabled bool   `json:"parking_enabled" example:"false"`
}

type OpenSessionResponse struct {
	Message   string              `json:"message" example:"Session started"`
	SessionID string              `json:"session_id"`
	Stats     models.SessionStats `json:"stats"`
}

type SeekRequest struct {
	Frame int64 `json:"frame" example:"300"`
}

type ParkingModeRequest struct {
	Enabled bool `json:"enabled"`
}

type StateResponse struct {
	models.AppState
	ViolatingCarIDs []int `json:"violating_car_ids"`
}

// sessionErrorStatus maps pipeline errors onto HTTP status codes
func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrParkingNeedsSlots),
		errors.Is(err, pipeline.ErrUnsupportedSource),
		errors.Is(err, capture.ErrSeekUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, pipeline.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, capture.ErrSourceOpen):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// @Summary Open a session
// @Description Start processing a video file, stream URL or camera. Still images are processed once and rendered immediately. A running session is replaced.
// @Tags session
// @Accept json
// @Produce json
// @Param request body OpenSessionRequest true "Source"
// @Success 200 {object} OpenSessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid session request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	spec := models.SourceSpec{
		Kind:           models.SourceKind(req.Kind),
		Location:       req.Source,
		ParkingEnabled: req.ParkingEnabled,
	}
	if err := capture.ValidateSpec(spec); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if spec.Kind == models.SourceKindImage {
		out, err := h.session.ProcessStill(c.Request.Context(), spec.Location, spec.ParkingEnabled)
		if err != nil {
			logging.Error(c).Err(err).Str("source", spec.Location).Msg("Failed to process image")
			c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
			return
		}
		stats := h.session.Stats()
		logging.Info(c).Str("source", spec.Location).Int("objects", out.ObjectCount).Msg("Image processed")
		c.JSON(http.StatusOK, OpenSessionResponse{Message: "Image processed", SessionID: stats.SessionID, Stats: stats})
		return
	}

	if err := h.session.Open(c.Request.Context(), spec); err != nil {
		logging.Error(c).Err(err).Str("kind", req.Kind).Str("source", spec.Location).Msg("Failed to open session")
		c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	stats := h.session.Stats()
	c.Set(string(logging.CtxSessionID), stats.SessionID)
	logging.Info(c).Str("kind", req.Kind).Str("source", spec.Location).Msg("Session started successfully")
	c.JSON(http.StatusOK, OpenSessionResponse{Message: "Session started", SessionID: stats.SessionID, Stats: stats})
}

// @Summary Stop the session
// @Tags session
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /session [delete]
func (h *SessionHandler) Stop(c *gin.Context) {
	if err := h.session.Stop(); err != nil {
		c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).Msg("Session stopped")
	c.JSON(http.StatusOK, SuccessResponse{Message: "Session stopped"})
}

// @Summary Seek within a video file
// @Description Stops processing, moves the file to the given frame and resumes. Tracks are reset.
// @Tags session
// @Accept json
// @Produce json
// @Param request body SeekRequest true "Target frame"
// @Success 200 {object} models.SessionStats
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /session/seek [post]
func (h *SessionHandler) Seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Frame < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "frame must not be negative"})
		return
	}
	if total := h.session.Stats().TotalFrames; total > 0 && req.Frame >= total {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "frame is past the end of the source"})
		return
	}

	if err := h.session.Seek(req.Frame); err != nil {
		logging.Warn(c).Err(err).Int64("frame", req.Frame).Msg("Seek failed")
		c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.session.Stats())
}

// @Summary Toggle parking mode
// @Description Parking mode flags cars standing still outside every slot. It needs at least one slot.
// @Tags session
// @Accept json
// @Produce json
// @Param request body ParkingModeRequest true "Mode"
// @Success 200 {object} models.SessionStats
// @Failure 400 {object} ErrorResponse
// @Router /session/parking [put]
func (h *SessionHandler) SetParkingMode(c *gin.Context) {
	var req ParkingModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.session.SetParkingMode(req.Enabled); err != nil {
		c.JSON(sessionErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.session.Stats())
}

// @Summary Session status
// @Tags session
// @Produce json
// @Success 200 {object} models.SessionStats
// @Router /session/status [get]
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Stats())
}

// @Summary Latest inference result
// @Description Tracked cars, slot statuses and wrong-slot car ids from the last processed frame
// @Tags session
// @Produce json
// @Success 200 {object} StateResponse
// @Router /session/state [get]
func (h *SessionHandler) State(c *gin.Context) {
	state := h.session.AppState()
	ids := state.ViolatingIDs()
	sort.Ints(ids)
	c.JSON(http.StatusOK, StateResponse{AppState: state, ViolatingCarIDs: ids})
}

// @Summary Latest rendered frame
// @Tags session
// @Produce image/jpeg
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /session/frame [get]
func (h *SessionHandler) Frame(c *gin.Context) {
	jpeg, ok := h.streamer.LatestJPEG()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no frame rendered yet"})
		return
	}
	writeJPEG(c, jpeg)
}

// @Summary MJPEG stream of rendered frames
// @Tags session
// @Produce multipart/x-mixed-replace
// @Success 200 {file} binary
// @Router /session/stream [get]
func (h *SessionHandler) Stream(c *gin.Context) {
	h.streamer.StreamMJPEGHTTP(c.Writer, c.Request)
}
