package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
	"parking-monitor-go/internal/services/detection"
)

const (
	readBackoffMin = 50 * time.Millisecond
	readBackoffMax = 2 * time.Second
	readJitterPct  = 20
)

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}

// captureLoop reads the source at its frame rate and publishes every frame
func (c *Coordinator) captureLoop(ctx context.Context, wg *sync.WaitGroup, source capture.Source, fps float64, logger zerolog.Logger) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Capture loop panic recovered")
		}
	}()

	ticker := time.NewTicker(tickInterval(fps))
	defer ticker.Stop()

	readErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := source.Read()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				logger.Info().Uint64("frames", c.seqCounter.Load()).Msg("Source exhausted")
				return
			}

			readErrors++
			c.deps.Metrics.ReadErrors.Add(1)
			delay := capture.BackoffDelay(readErrors-1, readBackoffMin, readBackoffMax, readJitterPct)
			logger.Warn().Err(err).Int("consecutive_errors", readErrors).Dur("retry_in", delay).Msg("Failed to read frame")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		readErrors = 0

		// a read that outlived Stop must not reach the next session
		if ctx.Err() != nil {
			return
		}
		c.submit(frame)
	}
}

// submit assigns the next sequence number and hands the frame to display and,
// unless inference is lagging, to inference
func (c *Coordinator) submit(frame *models.Frame) {
	seq := c.seqCounter.Add(1)
	frame.Seq = seq

	c.raw.Publish(frame)
	c.deps.Metrics.FramesCaptured.Add(1)

	if c.inferring.Load() && ShouldDrop(seq, c.processedSeq.Load(), c.cfg.DropLagThreshold) {
		c.dropped.Add(1)
		c.deps.Metrics.FramesDropped.Add(1)
		return
	}
	c.pending.Publish(frame)
}

// inferenceLoop processes the newest submitted frame whenever one arrives
func (c *Coordinator) inferenceLoop(ctx context.Context, wg *sync.WaitGroup, logger zerolog.Logger) {
	defer wg.Done()

	last := c.processedSeq.Load()
	for {
		frame, err := c.pending.WaitNewer(ctx, last)
		if err != nil {
			return
		}
		last = frame.Seq

		c.inferring.Store(true)
		state, ok := c.safeProcess(ctx, frame, logger)
		c.inferring.Store(false)
		if ctx.Err() != nil {
			return
		}
		c.catchUp()
		if !ok {
			continue
		}

		c.appState.Set(state)
		c.processedSeq.Store(frame.Seq)
		c.processedFrames.Add(1)
		c.deps.Metrics.FramesProcessed.Add(1)
	}
}

// catchUp hands the newest captured frame to inference when the frames
// submitted during the last cycle are already behind it
func (c *Coordinator) catchUp() {
	if c.pending.Seq() >= c.raw.Seq() {
		return
	}
	if frame, ok := c.raw.Latest(); ok {
		c.pending.PublishIfNewer(frame)
	}
}

func (c *Coordinator) safeProcess(ctx context.Context, frame *models.Frame, logger zerolog.Logger) (state models.AppState, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Uint64("seq", frame.Seq).Msg("Inference cycle panic recovered")
			ok = false
		}
	}()
	return c.process(ctx, frame, logger), true
}

// process runs detect, track, slot update and violation checks for one frame
func (c *Coordinator) process(ctx context.Context, frame *models.Frame, logger zerolog.Logger) models.AppState {
	start := time.Now()
	dets, err := detection.SafeDetect(ctx, c.deps.Detector, frame)
	elapsed := time.Since(start)
	c.latency.Add(elapsed)
	c.deps.Metrics.ObserveInference(elapsed)

	if err != nil {
		c.deps.Metrics.InferenceErrors.Add(1)
		if c.detectFailures.Add(1) == 1 {
			logger.Error().Err(err).Uint64("seq", frame.Seq).Msg("Detection failed, continuing without detections")
		}
		dets = nil
	} else if n := c.detectFailures.Swap(0); n > 0 {
		logger.Info().Int64("failed_frames", n).Msg("Detection recovered")
	}

	boxes := make([]image.Rectangle, len(dets))
	classIDs := make([]int, len(dets))
	confs := make([]float32, len(dets))
	for i, d := range dets {
		boxes[i] = d.Box
		classIDs[i] = d.ClassID
		confs[i] = d.Confidence
	}
	objects := c.deps.Tracker.Update(boxes, classIDs, confs)

	state := models.NewAppState()
	state.Cars = objects
	state.FrameSequence = frame.Seq

	if c.deps.Slots.Len() > 0 {
		state.SlotStatuses, state.SlotOccupancy = c.deps.Slots.Update(objects)
		if c.parking.Load() {
			state.ViolatingCarIDs = c.deps.Slots.WrongSlot(objects, c.cfg.WrongSlotFrames)
		}
	}

	for _, r := range c.deps.Violations.Check(state, frame) {
		c.deps.Metrics.IncViolation(r.Type.String())
	}

	summary := c.deps.Slots.Summary()
	c.deps.Metrics.TrackedCars.Store(uint64(len(objects)))
	c.deps.Metrics.OccupiedSlots.Store(uint64(summary.Occupied))
	c.deps.Metrics.TotalSlots.Store(uint64(summary.Total))

	return state
}

// renderLoop redraws whenever the raw frame or the state changed
func (c *Coordinator) renderLoop(ctx context.Context, wg *sync.WaitGroup, fps float64, logger zerolog.Logger) {
	defer wg.Done()

	ticker := time.NewTicker(tickInterval(fps))
	defer ticker.Stop()

	var lastRaw, lastState uint64
	rendered := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rawSeq, stateSeq, ok := c.renderTick(lastRaw, lastState, rendered, logger)
		if ok {
			lastRaw, lastState, rendered = rawSeq, stateSeq, true
		}
	}
}

func (c *Coordinator) renderTick(lastRaw, lastState uint64, rendered bool, logger zerolog.Logger) (rawSeq, stateSeq uint64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Render panic recovered")
			ok = false
		}
	}()

	if rendered && c.raw.Seq() == lastRaw && c.appState.Seq() == lastState {
		return lastRaw, lastState, false
	}

	frame, have := c.raw.Latest()
	if !have {
		return lastRaw, lastState, false
	}
	state, computed := c.appState.Get()
	draw := computed && ShouldDrawDetections(state.FrameSequence, frame.Seq)

	fps := c.renderFPS.Tick(time.Now())
	out, err := c.deps.Renderer.Render(frame, &state, draw, c.deps.Slots.Slots(), fps)
	if err != nil {
		c.deps.Metrics.RenderErrors.Add(1)
		logger.Debug().Err(err).Uint64("seq", frame.Seq).Msg("Render failed")
		return lastRaw, lastState, false
	}

	c.publishRendered(out, logger)
	return frame.Seq, state.FrameSequence, true
}

func (c *Coordinator) publishRendered(out *models.ProcessedFrame, logger zerolog.Logger) {
	c.processed.Publish(out)
	c.deps.Metrics.FramesRendered.Add(1)

	if c.deps.Publisher != nil {
		if err := c.deps.Publisher.PublishFrame(out); err != nil {
			logger.Debug().Err(err).Msg("Failed to publish rendered frame")
		}
	}
}
