package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-monitor-go/internal/models"
)

func TestFrameRegisterCopies(t *testing.T) {
	r := NewFrameRegister()
	_, ok := r.Latest()
	assert.False(t, ok)

	src := &models.Frame{Data: []byte{1, 2, 3}, Width: 1, Height: 1, Seq: 4}
	r.Publish(src)
	src.Data[0] = 9

	got, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, byte(1), got.Data[0], "publish copies")

	got.Data[1] = 9
	again, _ := r.Latest()
	assert.Equal(t, byte(2), again.Data[1], "read copies")
	assert.Equal(t, uint64(4), r.Seq())

	r.Reset()
	assert.Zero(t, r.Seq())
}

func TestFrameRegisterWaitNewer(t *testing.T) {
	r := NewFrameRegister()
	r.Publish(&models.Frame{Data: []byte{0}, Seq: 1})

	done := make(chan *models.Frame, 1)
	go func() {
		f, err := r.WaitNewer(context.Background(), 1)
		if err == nil {
			done <- f
		}
	}()

	select {
	case <-done:
		t.Fatal("returned before a newer frame was published")
	case <-time.After(20 * time.Millisecond):
	}

	r.Publish(&models.Frame{Data: []byte{0}, Seq: 2})
	select {
	case f := <-done:
		assert.Equal(t, uint64(2), f.Seq)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}

	f, err := r.WaitNewer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.Seq, "an already newer frame returns immediately")
}

func TestFrameRegisterPublishIfNewer(t *testing.T) {
	r := NewFrameRegister()
	frame := func(seq uint64) *models.Frame {
		return &models.Frame{Data: make([]byte, 3), Width: 1, Height: 1, Seq: seq}
	}

	assert.True(t, r.PublishIfNewer(frame(0)), "an empty register takes any frame")
	assert.True(t, r.PublishIfNewer(frame(5)))
	assert.False(t, r.PublishIfNewer(frame(5)))
	assert.False(t, r.PublishIfNewer(frame(3)))
	assert.Equal(t, uint64(5), r.Seq())
}

func TestFrameRegisterWaitCancelled(t *testing.T) {
	r := NewFrameRegister()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := r.WaitNewer(ctx, 0)
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancel did not wake the waiter")
	}
}

func TestStateStore(t *testing.T) {
	s := NewStateStore()
	_, ok := s.Get()
	assert.False(t, ok)

	state := models.NewAppState()
	state.FrameSequence = 7
	state.ViolatingCarIDs[3] = struct{}{}
	s.Set(state)
	delete(state.ViolatingCarIDs, 3)

	got, ok := s.Get()
	require.True(t, ok)
	assert.True(t, got.IsViolating(3))
	assert.Equal(t, uint64(7), s.Seq())

	s.Reset()
	assert.Zero(t, s.Seq())
}

func TestProcessedRegister(t *testing.T) {
	var r ProcessedRegister
	_, ok := r.Latest()
	assert.False(t, ok)

	r.Publish(&models.ProcessedFrame{Data: []byte{1}, Seq: 3, StateSeq: 2})
	got, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.StateSeq)
}

func TestLatencyWindow(t *testing.T) {
	w := NewLatencyWindow(3)
	mean, std := w.MeanStdDev()
	assert.Zero(t, mean)
	assert.Zero(t, std)

	w.Add(10 * time.Millisecond)
	mean, _ = w.MeanStdDev()
	assert.Equal(t, 10*time.Millisecond, mean)

	w.Add(20 * time.Millisecond)
	w.Add(30 * time.Millisecond)
	w.Add(40 * time.Millisecond) // evicts 10ms
	mean, std = w.MeanStdDev()
	assert.Equal(t, 30*time.Millisecond, mean)
	assert.InDelta(t, float64(10*time.Millisecond), float64(std), float64(time.Microsecond))
}
