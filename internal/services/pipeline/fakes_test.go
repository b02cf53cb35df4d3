package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/metrics"
	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
	"parking-monitor-go/internal/services/slots"
	"parking-monitor-go/internal/services/tracking"
	"parking-monitor-go/internal/services/violations"
)

const testW, testH = 16, 12

type fakeSource struct {
	mu      sync.Mutex
	fps     float64
	reads   int
	seeked  int64
	closed  atomic.Bool
	limit   int           // 0 = endless
	block   chan struct{} // when set, Read holds the lock until it is closed
	reading atomic.Bool
}

func (s *fakeSource) Read() (*models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.block != nil {
		s.reading.Store(true)
		<-s.block
	}
	if s.limit > 0 && s.reads >= s.limit {
		return nil, capture.ErrEndOfStream
	}
	s.reads++
	return &models.Frame{Data: make([]byte, testW*testH*3), Width: testW, Height: testH, Timestamp: time.Now()}, nil
}

func (s *fakeSource) FPS() float64      { return s.fps }
func (s *fakeSource) FrameCount() int64 { return 1000 }

func (s *fakeSource) Seek(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeked = frame
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed.Store(true)
	return nil
}

type fakeDetector struct {
	delay     time.Duration
	ignoreCtx bool
	panics    bool
	calls     atomic.Int64
}

func (d *fakeDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	d.calls.Add(1)
	if d.panics {
		panic("model exploded")
	}
	if d.delay > 0 {
		if d.ignoreCtx {
			time.Sleep(d.delay)
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.delay):
			}
		}
	}
	return []models.Detection{{Box: image.Rect(2, 2, 8, 8), ClassID: 6, Confidence: 0.9}}, nil
}

func (d *fakeDetector) Close() error { return nil }

type renderCall struct {
	displaySeq uint64
	stateSeq   uint64
	drawCars   bool
}

type fakeRenderer struct {
	mu      sync.Mutex
	calls   []renderCall
	parking bool
	resets  int
}

func (r *fakeRenderer) Render(frame *models.Frame, state *models.AppState, drawCars bool, slots []models.ParkingSlot, fps float64) (*models.ProcessedFrame, error) {
	r.mu.Lock()
	r.calls = append(r.calls, renderCall{displaySeq: frame.Seq, stateSeq: state.FrameSequence, drawCars: drawCars})
	r.mu.Unlock()

	return &models.ProcessedFrame{
		Data:            append([]byte(nil), frame.Data...),
		Width:           frame.Width,
		Height:          frame.Height,
		Seq:             frame.Seq,
		StateSeq:        state.FrameSequence,
		DetectionsDrawn: drawCars,
		ObjectCount:     len(state.Cars),
		FPS:             fps,
	}, nil
}

func (r *fakeRenderer) SetParkingMode(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parking = enabled
}

func (r *fakeRenderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *fakeRenderer) snapshot() []renderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]renderCall(nil), r.calls...)
}

type fakePublisher struct {
	mu     sync.Mutex
	latest *models.ProcessedFrame
	resets int
}

func (p *fakePublisher) PublishFrame(frame *models.ProcessedFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = frame
	return nil
}

func (p *fakePublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = nil
	p.resets++
}

func (p *fakePublisher) state() (*models.ProcessedFrame, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.resets
}

type fixture struct {
	c          *Coordinator
	sources    []*fakeSource
	detector   *fakeDetector
	renderer   *fakeRenderer
	publisher  *fakePublisher
	slots      *slots.Manager
	engine     *violations.Engine
	blockReads chan struct{}
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultFPS:       200,
		MaxFPS:           1000,
		JoinTimeout:      500 * time.Millisecond,
		DropLagThreshold: 3,
		WrongSlotFrames:  30,
	}
}

func newFixture(t *testing.T, det *fakeDetector) *fixture {
	t.Helper()
	f := &fixture{detector: det, renderer: &fakeRenderer{}, publisher: &fakePublisher{}, slots: slots.NewManager()}

	opener := func(spec models.SourceSpec) (capture.Source, error) {
		if spec.Location == "missing.mp4" {
			return nil, capture.ErrSourceOpen
		}
		src := &fakeSource{fps: 200, block: f.blockReads}
		f.sources = append(f.sources, src)
		return src, nil
	}
	loader := func(path string) (*models.Frame, error) {
		if path == "missing.png" {
			return nil, errors.New("no such file")
		}
		return &models.Frame{Data: make([]byte, testW*testH*3), Width: testW, Height: testH}, nil
	}

	f.engine = violations.NewEngine(violations.Rules{OverstayFrames: 300, WrongSlotFrames: 30, CheckInterval: time.Millisecond}, nil, zerolog.Nop())

	c, err := NewCoordinator(testConfig(), Deps{
		Opener:     opener,
		LoadImage:  loader,
		Detector:   det,
		Tracker:    tracking.NewIoUTracker(tracking.Params{TrackBuffer: 90, TrackThresh: 0.25, MatchIoU: 0.3, StillPixels: 3}),
		Slots:      f.slots,
		Violations: f.engine,
		Renderer:   f.renderer,
		Publisher:  f.publisher,
		Metrics:    metrics.New(),
	}, zerolog.Nop())
	require.NoError(t, err)
	f.c = c

	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return f
}

var fileSpec = models.SourceSpec{Kind: models.SourceKindFile, Location: "lot.mp4"}
