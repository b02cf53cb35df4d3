package pipeline

import (
	"context"
	"image"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/capture"
)

func TestShouldDrawDetections(t *testing.T) {
	tests := []struct {
		stateSeq, displaySeq uint64
		want                 bool
	}{
		{0, 0, true},
		{5, 5, true},
		{4, 5, true},
		{6, 5, false},
		{1, math.MaxUint64, true},
		{math.MaxUint64, math.MaxUint64, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldDrawDetections(tt.stateSeq, tt.displaySeq), "state %d display %d", tt.stateSeq, tt.displaySeq)
	}

	for s := uint64(0); s < 50; s++ {
		for d := uint64(0); d < 50; d++ {
			assert.Equal(t, s <= d, ShouldDrawDetections(s, d))
		}
	}
}

func TestShouldDrop(t *testing.T) {
	assert.True(t, ShouldDrop(100, 95, 3))
	assert.False(t, ShouldDrop(98, 95, 3))
	assert.False(t, ShouldDrop(99, 96, 3))
	assert.False(t, ShouldDrop(5, 9, 3), "processed ahead after a reset never drops")
}

func TestSubmitCountsDropWhenInferenceLags(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	c.seqCounter.Store(99)
	c.processedSeq.Store(95)
	c.inferring.Store(true)

	c.submit(&models.Frame{Data: make([]byte, 3), Width: 1, Height: 1})

	assert.Equal(t, uint64(1), c.dropped.Load())
	assert.Equal(t, uint64(100), c.raw.Seq(), "dropped frames are still displayed")
	assert.Equal(t, uint64(0), c.pending.Seq(), "dropped frames are not submitted")

	c.inferring.Store(false)
	c.submit(&models.Frame{Data: make([]byte, 3), Width: 1, Height: 1})
	assert.Equal(t, uint64(1), c.dropped.Load(), "an idle inference loop always gets the frame")
	assert.Equal(t, uint64(101), c.pending.Seq())
}

func TestOpenRunsPipeline(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	assert.Equal(t, StateRunning, c.State())

	require.Eventually(t, func() bool {
		p, ok := c.LatestProcessed()
		return ok && p.DetectionsDrawn && c.Stats().ProcessedFrames > 2
	}, 2*time.Second, 5*time.Millisecond)

	state := c.AppState()
	require.Len(t, state.Cars, 1)
	assert.Equal(t, image.Rect(2, 2, 8, 8), state.Cars[0].BBox)

	stats := c.Stats()
	assert.Equal(t, "running", stats.State)
	assert.Equal(t, float64(200), stats.SourceFPS)
	assert.Equal(t, int64(1000), stats.TotalFrames)
	assert.NotEmpty(t, stats.SessionID)
	assert.GreaterOrEqual(t, stats.LatestSeq, stats.ProcessedSeq)

	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
	assert.True(t, f.sources[0].closed.Load())
	assert.ErrorIs(t, c.Stop(), ErrNotRunning)
}

func TestRenderNeverDrawsStateAheadOfDisplay(t *testing.T) {
	f := newFixture(t, &fakeDetector{delay: 15 * time.Millisecond})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return len(f.renderer.snapshot()) > 30 }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Stop())

	drawn := 0
	for _, call := range f.renderer.snapshot() {
		if call.drawCars {
			drawn++
			assert.LessOrEqual(t, call.stateSeq, call.displaySeq)
		}
		if call.stateSeq > call.displaySeq {
			assert.False(t, call.drawCars)
		}
	}
	assert.Positive(t, drawn)
}

func TestReopenResetsSession(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return c.Stats().LatestSeq > 20 }, 2*time.Second, 5*time.Millisecond)
	first := c.Stats()

	require.NoError(t, c.Open(context.Background(), fileSpec))
	second := c.Stats()

	assert.Less(t, second.LatestSeq, first.LatestSeq)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.True(t, f.sources[0].closed.Load(), "the previous source is closed")
	assert.GreaterOrEqual(t, f.renderer.resets, 2)
	_, resets := f.publisher.state()
	assert.GreaterOrEqual(t, resets, 2)

	require.Eventually(t, func() bool { return c.Stats().ProcessedFrames > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestFailedReopenDropsPreviousFrames(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool {
		latest, _ := f.publisher.state()
		return latest != nil
	}, 2*time.Second, 5*time.Millisecond)

	err := c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindFile, Location: "missing.mp4"})
	require.ErrorIs(t, err, capture.ErrSourceOpen)

	latest, _ := f.publisher.state()
	assert.Nil(t, latest, "the stream does not keep the previous session's frame")
	_, ok := c.LatestProcessed()
	assert.False(t, ok)
	_, ok = c.LatestRaw()
	assert.False(t, ok)
}

func TestOpenFailureLeavesIdle(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	err := f.c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindFile, Location: "missing.mp4"})
	assert.ErrorIs(t, err, capture.ErrSourceOpen)
	assert.Equal(t, StateIdle, f.c.State())
}

func TestOpenValidation(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	err := f.c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindFile, Location: "lot.mp4", ParkingEnabled: true})
	assert.ErrorIs(t, err, ErrParkingNeedsSlots)

	err = f.c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindImage, Location: "lot.png"})
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestStopJoinsWithinTimeout(t *testing.T) {
	f := newFixture(t, &fakeDetector{delay: 10 * time.Second, ignoreCtx: true})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return f.detector.calls.Load() > 0 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, c.Stop())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond, "the stuck inference loop is abandoned after the join timeout")
	assert.Equal(t, StateStopped, c.State())
}

func TestStopReturnsWhileSourceReadHangs(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	f.blockReads = make(chan struct{})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	src := f.sources[0]
	require.Eventually(t, src.reading.Load, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, c.Stop())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StateStopped, c.State())

	done := make(chan models.SessionStats)
	go func() { done <- c.Stats() }()
	select {
	case stats := <-done:
		assert.Equal(t, "stopped", stats.State)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stats blocked behind a hung source")
	}
	assert.False(t, src.closed.Load(), "the hung source is closed once its read returns")

	close(f.blockReads)
	require.Eventually(t, src.closed.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(0), c.raw.Seq(), "a read that outlived Stop is not published")
}

func TestStopCancelsBlockingDetector(t *testing.T) {
	f := newFixture(t, &fakeDetector{delay: 10 * time.Second})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return f.detector.calls.Load() > 0 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, c.Stop())
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestDetectorPanicKeepsPipelineAlive(t *testing.T) {
	f := newFixture(t, &fakeDetector{panics: true})
	c := f.c

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return c.Stats().ProcessedFrames > 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, c.AppState().Cars)
}

func TestSeekKeepsSequence(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	assert.ErrorIs(t, c.Seek(10), ErrNotRunning)

	require.NoError(t, c.Open(context.Background(), fileSpec))
	require.Eventually(t, func() bool { return c.Stats().LatestSeq > 5 }, 2*time.Second, 5*time.Millisecond)
	before := c.Stats().LatestSeq

	require.NoError(t, c.Seek(10))
	assert.Equal(t, int64(10), f.sources[0].seeked)
	assert.GreaterOrEqual(t, c.Stats().LatestSeq, before)
	assert.Equal(t, StateRunning, c.State())

	require.Eventually(t, func() bool { return c.Stats().LatestSeq > before+5 }, 2*time.Second, 5*time.Millisecond)
}

func TestSeekDoesNotReuseTrackIDs(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	_, err := f.slots.AddSlot([]image.Point{{100, 100}, {200, 100}, {200, 200}, {100, 200}})
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindFile, Location: "lot.mp4", ParkingEnabled: true}))

	wrongSlotCars := func() map[int]bool {
		cars := map[int]bool{}
		for _, r := range f.engine.Records() {
			if r.Type == models.ViolationTypeWrongSlot {
				cars[r.CarID] = true
			}
		}
		return cars
	}
	require.Eventually(t, func() bool { return wrongSlotCars()[1] }, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Seek(500))

	// the same parked car is tracked again under a fresh id and reported again
	require.Eventually(t, func() bool { return len(wrongSlotCars()) == 2 }, 3*time.Second, 5*time.Millisecond)
	assert.True(t, wrongSlotCars()[1])
	for _, car := range c.AppState().Cars {
		assert.Greater(t, car.ID, 1, "ids from before the seek are not reissued")
	}
}

func TestCatchUpSubmitsNewestFrame(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	c.pending.Publish(&models.Frame{Data: make([]byte, 3), Width: 1, Height: 1, Seq: 98})
	c.raw.Publish(&models.Frame{Data: make([]byte, 3), Width: 1, Height: 1, Seq: 102})

	c.catchUp()
	assert.Equal(t, uint64(102), c.pending.Seq(), "inference skips frames that fell behind while it was busy")

	c.pending.Publish(&models.Frame{Data: make([]byte, 3), Width: 1, Height: 1, Seq: 103})
	c.catchUp()
	assert.Equal(t, uint64(103), c.pending.Seq(), "a pending frame ahead of display is kept")
}

func TestProcessStill(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	out, err := c.ProcessStill(context.Background(), "lot.png", false)
	require.NoError(t, err)
	assert.Equal(t, models.StillImageSeq, out.Seq)
	assert.True(t, out.DetectionsDrawn)
	assert.Equal(t, 1, out.ObjectCount)
	assert.Equal(t, StateIdle, c.State())

	latest, ok := c.LatestProcessed()
	require.True(t, ok)
	assert.Equal(t, out.Seq, latest.Seq)

	_, err = c.ProcessStill(context.Background(), "missing.png", false)
	assert.Error(t, err)

	_, err = c.ProcessStill(context.Background(), "lot.png", true)
	assert.ErrorIs(t, err, ErrParkingNeedsSlots)
}

func TestProcessStillRefusedWhileRunning(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	require.NoError(t, f.c.Open(context.Background(), fileSpec))

	_, err := f.c.ProcessStill(context.Background(), "lot.png", false)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestParkingModeComputesWrongSlot(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	c := f.c

	_, err := f.slots.AddSlot([]image.Point{{100, 100}, {200, 100}, {200, 200}, {100, 200}})
	require.NoError(t, err)
	require.NoError(t, c.SetParkingMode(true))
	assert.True(t, f.renderer.parking)

	require.NoError(t, c.Open(context.Background(), models.SourceSpec{Kind: models.SourceKindFile, Location: "lot.mp4", ParkingEnabled: true}))

	// the detected car sits still outside the only slot
	require.Eventually(t, func() bool {
		return c.AppState().IsViolating(1)
	}, 3*time.Second, 5*time.Millisecond)

	stats := c.Stats()
	assert.True(t, stats.ParkingEnabled)
	assert.Equal(t, 1, stats.Slots.Total)
	assert.Equal(t, 1, stats.Slots.Empty)
}

func TestSetParkingModeNeedsSlots(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	assert.ErrorIs(t, f.c.SetParkingMode(true), ErrParkingNeedsSlots)
	assert.NoError(t, f.c.SetParkingMode(false))
}

func TestStateIsString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}
