package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/logging"
	"parking-monitor-go/internal/metrics"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
	"parking-monitor-go/internal/services/detection"
	"parking-monitor-go/internal/services/render"
	"parking-monitor-go/internal/services/slots"
	"parking-monitor-go/internal/services/tracking"
	"parking-monitor-go/internal/services/violations"
)

var (
	ErrNotRunning        = errors.New("no session is running")
	ErrBusy              = errors.New("a session is running")
	ErrParkingNeedsSlots = errors.New("parking mode requires a slot template")
	ErrUnsupportedSource = errors.New("still images are processed with ProcessStill")
	ErrLoopsStuck        = errors.New("session loops did not stop in time")
)

// SessionState represents the lifecycle state of the coordinator
type SessionState int32

const (
	StateIdle SessionState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameRenderer draws overlays onto raw frames
type FrameRenderer interface {
	Render(frame *models.Frame, state *models.AppState, drawCars bool, slots []models.ParkingSlot, fps float64) (*models.ProcessedFrame, error)
	SetParkingMode(enabled bool)
	Reset()
}

// FramePublisher receives every rendered frame. Reset drops the last one
// when a new session starts.
type FramePublisher interface {
	PublishFrame(frame *models.ProcessedFrame) error
	Reset()
}

// ImageLoader decodes a still image
type ImageLoader func(path string) (*models.Frame, error)

// Deps are the collaborators a coordinator drives
type Deps struct {
	Opener     capture.Opener
	LoadImage  ImageLoader
	Detector   detection.Detector
	Tracker    tracking.Tracker
	Slots      *slots.Manager
	Violations *violations.Engine
	Renderer   FrameRenderer
	Publisher  FramePublisher
	Metrics    *metrics.Metrics
}

// ShouldDrawDetections reports whether detections computed from stateSeq may
// be drawn over the frame displaySeq. Detections from a frame newer than the
// displayed one would appear ahead of the image.
func ShouldDrawDetections(stateSeq, displaySeq uint64) bool {
	return stateSeq <= displaySeq
}

// ShouldDrop reports whether a captured frame is skipped by inference
func ShouldDrop(latestSeq, processedSeq, threshold uint64) bool {
	return latestSeq > processedSeq && latestSeq-processedSeq > threshold
}

// Coordinator owns one session at a time: the source, the three loops and
// every piece of state they share
type Coordinator struct {
	cfg    *config.Config
	deps   Deps
	base   zerolog.Logger
	logger zerolog.Logger

	// serialises Open, Stop, Seek and ProcessStill
	opMu sync.Mutex

	state  int32
	parent context.Context
	cancel context.CancelFunc
	loops  *sync.WaitGroup

	sessionMu sync.RWMutex
	source    capture.Source
	spec      models.SourceSpec
	sessionID string
	startedAt time.Time
	fps       float64

	parking atomic.Bool

	raw       *FrameRegister // every captured frame, for display
	pending   *FrameRegister // frames submitted to inference
	processed ProcessedRegister
	appState  *StateStore

	seqCounter      atomic.Uint64
	processedSeq    atomic.Uint64
	dropped         atomic.Uint64
	processedFrames atomic.Uint64
	inferring       atomic.Bool
	detectFailures  atomic.Int64

	latency   *LatencyWindow
	renderFPS *render.FPSMeter
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Coordinator, error) {
	if deps.Opener == nil {
		return nil, fmt.Errorf("source opener is required")
	}
	if deps.Tracker == nil || deps.Slots == nil || deps.Violations == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("tracker, slots, violations and renderer are required")
	}
	if deps.LoadImage == nil {
		deps.LoadImage = capture.LoadImage
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	return &Coordinator{
		cfg:       cfg,
		deps:      deps,
		base:      logger,
		logger:    logger,
		raw:       NewFrameRegister(),
		pending:   NewFrameRegister(),
		appState:  NewStateStore(),
		latency:   NewLatencyWindow(100),
		renderFPS: render.NewFPSMeter(0.1),
	}, nil
}

func (c *Coordinator) getState() SessionState {
	return SessionState(atomic.LoadInt32(&c.state))
}

func (c *Coordinator) setState(s SessionState) {
	atomic.StoreInt32(&c.state, int32(s))
}

// State returns the lifecycle state
func (c *Coordinator) State() SessionState {
	return c.getState()
}

// Open starts a session on spec. A running session is stopped first and no
// state from it survives.
func (c *Coordinator) Open(ctx context.Context, spec models.SourceSpec) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if spec.Kind == models.SourceKindImage {
		return ErrUnsupportedSource
	}
	if spec.ParkingEnabled && c.deps.Slots.Len() == 0 {
		return ErrParkingNeedsSlots
	}

	if c.getState() == StateRunning {
		c.stopLocked()
	}

	sessionID := uuid.NewString()
	c.resetSession(sessionID)

	source, err := c.deps.Opener(spec)
	if err != nil {
		c.setState(StateIdle)
		return fmt.Errorf("open session: %w", err)
	}

	fps := capture.ResolveFPS(source.FPS(), c.cfg.DefaultFPS, c.cfg.MaxFPS)

	c.sessionMu.Lock()
	c.source = source
	c.spec = spec
	c.sessionID = sessionID
	c.startedAt = time.Now()
	c.fps = fps
	c.logger = logging.WithSession(c.base, sessionID)
	c.sessionMu.Unlock()

	c.setParking(spec.ParkingEnabled)

	if prev := c.getState(); prev != StateIdle && prev != StateStopped {
		source.Close()
		return fmt.Errorf("cannot open a session from state %s", prev)
	}
	c.setState(StateRunning)
	c.deps.Metrics.SessionActive.Store(1)
	c.parent = context.WithoutCancel(ctx)
	c.startLoops()

	c.logger.Info().
		Str("kind", spec.Kind.String()).
		Str("location", spec.Location).
		Float64("fps", fps).
		Int64("frame_count", source.FrameCount()).
		Bool("parking_enabled", spec.ParkingEnabled).
		Msg("Session started")

	return nil
}

// resetSession clears every piece of per-session state
func (c *Coordinator) resetSession(sessionID string) {
	c.seqCounter.Store(0)
	c.processedSeq.Store(0)
	c.dropped.Store(0)
	c.processedFrames.Store(0)
	c.inferring.Store(false)
	c.detectFailures.Store(0)

	c.raw.Reset()
	c.pending.Reset()
	c.processed.Reset()
	c.appState.Reset()

	c.deps.Renderer.Reset()
	if c.deps.Publisher != nil {
		c.deps.Publisher.Reset()
	}
	c.deps.Tracker.Reset()
	c.deps.Slots.ResetStatus()
	c.deps.Violations.Reset(sessionID)
	c.deps.Metrics.ResetSession()

	c.latency.Reset()
	c.renderFPS.Reset()
}

func (c *Coordinator) startLoops() {
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel

	c.sessionMu.RLock()
	source, fps, logger := c.source, c.fps, c.logger
	c.sessionMu.RUnlock()

	wg := &sync.WaitGroup{}
	c.loops = wg

	wg.Add(3)
	go c.captureLoop(ctx, wg, source, fps, logger)
	go c.inferenceLoop(ctx, wg, logger)
	go c.renderLoop(ctx, wg, fps, logger)
}

// stopLoops cancels the loops and waits up to JoinTimeout for them. It
// reports whether they all returned.
func (c *Coordinator) stopLoops() bool {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	wg := c.loops
	c.loops = nil
	if wg == nil {
		return true
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Debug().Msg("Session loops joined")
		return true
	case <-time.After(c.cfg.JoinTimeout):
		c.logger.Warn().Dur("timeout", c.cfg.JoinTimeout).Msg("Session loops did not stop in time, tearing down anyway")
		return false
	}
}

// Stop ends the running session
func (c *Coordinator) Stop() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.getState() != StateRunning {
		return ErrNotRunning
	}
	c.stopLocked()
	return nil
}

func (c *Coordinator) stopLocked() {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateRunning), int32(StateStopping)) {
		return
	}
	c.logger.Info().Msg("Stopping session")

	c.teardown(c.stopLoops())
}

// teardown releases the source and marks the session stopped. A source whose
// loops were abandoned may still be inside Read, so it is closed in the
// background.
func (c *Coordinator) teardown(joined bool) {
	c.sessionMu.Lock()
	source := c.source
	c.source = nil
	c.sessionMu.Unlock()

	if source != nil {
		if joined {
			closeSource(source, c.logger)
		} else {
			go closeSource(source, c.logger)
		}
	}

	c.deps.Metrics.SessionActive.Store(0)
	c.setState(StateStopped)
	c.logger.Info().Uint64("frames", c.seqCounter.Load()).Uint64("dropped", c.dropped.Load()).Msg("Session stopped")
}

func closeSource(source capture.Source, logger zerolog.Logger) {
	if err := source.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close source")
	}
}

// Seek moves a running file session to frameIndex. Sequence numbers and
// track ids keep increasing because the session continues. If the loops do
// not stop in time the session is stopped instead.
func (c *Coordinator) Seek(frameIndex int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.getState() != StateRunning {
		return ErrNotRunning
	}

	if !c.stopLoops() {
		c.setState(StateStopping)
		c.teardown(false)
		return fmt.Errorf("seek to frame %d: %w", frameIndex, ErrLoopsStuck)
	}

	c.sessionMu.RLock()
	source := c.source
	c.sessionMu.RUnlock()

	err := source.Seek(frameIndex)
	if err != nil {
		c.logger.Warn().Err(err).Int64("frame", frameIndex).Msg("Seek failed, resuming")
	} else {
		c.deps.Tracker.DropTracks()
		c.logger.Info().Int64("frame", frameIndex).Msg("Seeked")
	}

	c.startLoops()
	if err != nil {
		return fmt.Errorf("seek to frame %d: %w", frameIndex, err)
	}
	return nil
}

// ProcessStill runs the whole chain once on a still image and publishes the
// render. Detections are always drawn.
func (c *Coordinator) ProcessStill(ctx context.Context, path string, parkingEnabled bool) (*models.ProcessedFrame, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.getState() == StateRunning {
		return nil, ErrBusy
	}
	if parkingEnabled && c.deps.Slots.Len() == 0 {
		return nil, ErrParkingNeedsSlots
	}

	frame, err := c.deps.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("process still: %w", err)
	}
	frame.Seq = models.StillImageSeq

	sessionID := uuid.NewString()
	c.resetSession(sessionID)
	c.sessionMu.Lock()
	c.spec = models.SourceSpec{Kind: models.SourceKindImage, Location: path, ParkingEnabled: parkingEnabled}
	c.sessionID = sessionID
	c.startedAt = time.Now()
	c.fps = 0
	c.sessionMu.Unlock()
	c.setParking(parkingEnabled)

	c.raw.Publish(frame)
	state := c.process(ctx, frame, c.logger)
	c.appState.Set(state)
	c.processedSeq.Store(frame.Seq)
	c.processedFrames.Add(1)

	out, err := c.deps.Renderer.Render(frame, &state, ShouldDrawDetections(state.FrameSequence, models.StillImageSeq), c.deps.Slots.Slots(), 0)
	if err != nil {
		return nil, fmt.Errorf("process still: %w", err)
	}
	c.publishRendered(out, c.logger)
	c.setState(StateIdle)
	return out.Clone(), nil
}

// SetParkingMode toggles parking mode for the current session
func (c *Coordinator) SetParkingMode(enabled bool) error {
	if enabled && c.deps.Slots.Len() == 0 {
		return ErrParkingNeedsSlots
	}
	c.setParking(enabled)
	return nil
}

// ParkingEnabled reports whether parking mode is on
func (c *Coordinator) ParkingEnabled() bool {
	return c.parking.Load()
}

func (c *Coordinator) setParking(enabled bool) {
	c.parking.Store(enabled)
	c.deps.Renderer.SetParkingMode(enabled)

	c.sessionMu.Lock()
	c.spec.ParkingEnabled = enabled
	c.sessionMu.Unlock()
}

// LatestRaw returns a copy of the latest captured frame
func (c *Coordinator) LatestRaw() (*models.Frame, bool) {
	return c.raw.Latest()
}

// LatestProcessed returns a copy of the latest rendered frame
func (c *Coordinator) LatestProcessed() (*models.ProcessedFrame, bool) {
	return c.processed.Latest()
}

// AppState returns a copy of the latest inference result
func (c *Coordinator) AppState() models.AppState {
	s, _ := c.appState.Get()
	return s
}

// SessionID returns the id of the current or last session
func (c *Coordinator) SessionID() string {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.sessionID
}

// Stats returns a point-in-time view of the session
func (c *Coordinator) Stats() models.SessionStats {
	c.sessionMu.RLock()
	stats := models.SessionStats{
		SessionID: c.sessionID,
		Source:    c.spec,
		StartedAt: c.startedAt,
		SourceFPS: c.fps,
	}
	if c.source != nil {
		stats.TotalFrames = c.source.FrameCount()
	}
	c.sessionMu.RUnlock()

	state, _ := c.appState.Get()
	mean, std := c.latency.MeanStdDev()

	summary := c.deps.Slots.Summary()
	summary.Violations = c.deps.Violations.Count()

	stats.State = c.getState().String()
	stats.RenderFPS = c.renderFPS.Value()
	stats.LatestSeq = c.seqCounter.Load()
	stats.ProcessedSeq = c.processedSeq.Load()
	stats.DroppedFrames = c.dropped.Load()
	stats.ProcessedFrames = c.processedFrames.Load()
	stats.InferenceMean = mean
	stats.InferenceStdDev = std
	stats.ObjectCount = len(state.Cars)
	stats.ParkingEnabled = c.parking.Load()
	stats.Slots = summary
	return stats
}

// Shutdown stops any running session
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}
