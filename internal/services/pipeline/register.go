package pipeline

import (
	"context"
	"sync"

	"parking-monitor-go/internal/models"
)

// FrameRegister holds the most recent raw frame. Publishing overwrites;
// readers either copy the latest frame or wait for a newer sequence.
type FrameRegister struct {
	mu    sync.Mutex
	cond  *sync.Cond
	frame *models.Frame
	seq   uint64
}

// NewFrameRegister creates an empty register
func NewFrameRegister() *FrameRegister {
	r := &FrameRegister{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Publish stores a copy of frame and wakes waiting readers
func (r *FrameRegister) Publish(frame *models.Frame) {
	c := frame.Clone()

	r.mu.Lock()
	r.frame = c
	r.seq = c.Seq
	r.mu.Unlock()

	r.cond.Broadcast()
}

// PublishIfNewer stores a copy of frame only when its sequence is ahead of
// the current one. It reports whether the frame was stored.
func (r *FrameRegister) PublishIfNewer(frame *models.Frame) bool {
	c := frame.Clone()

	r.mu.Lock()
	if r.frame != nil && c.Seq <= r.seq {
		r.mu.Unlock()
		return false
	}
	r.frame = c
	r.seq = c.Seq
	r.mu.Unlock()

	r.cond.Broadcast()
	return true
}

// Latest returns a copy of the current frame
func (r *FrameRegister) Latest() (*models.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frame == nil {
		return nil, false
	}
	return r.frame.Clone(), true
}

// Seq returns the sequence of the current frame, zero when empty
func (r *FrameRegister) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// WaitNewer blocks until a frame with sequence greater than after is
// published or ctx is done
func (r *FrameRegister) WaitNewer(ctx context.Context, after uint64) (*models.Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.cond.Broadcast()
	})
	defer stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.frame == nil || r.seq <= after {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.cond.Wait()
	}
	return r.frame.Clone(), nil
}

// Reset empties the register
func (r *FrameRegister) Reset() {
	r.mu.Lock()
	r.frame = nil
	r.seq = 0
	r.mu.Unlock()
}

// ProcessedRegister holds the most recent rendered frame
type ProcessedRegister struct {
	mu    sync.RWMutex
	frame *models.ProcessedFrame
}

// Publish stores a copy of frame
func (r *ProcessedRegister) Publish(frame *models.ProcessedFrame) {
	c := frame.Clone()
	r.mu.Lock()
	r.frame = c
	r.mu.Unlock()
}

// Latest returns a copy of the current rendered frame
func (r *ProcessedRegister) Latest() (*models.ProcessedFrame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.frame == nil {
		return nil, false
	}
	return r.frame.Clone(), true
}

// Reset empties the register
func (r *ProcessedRegister) Reset() {
	r.mu.Lock()
	r.frame = nil
	r.mu.Unlock()
}

// StateStore holds the AppState of the latest completed inference cycle
type StateStore struct {
	mu    sync.RWMutex
	state models.AppState
	set   bool
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{state: models.NewAppState()}
}

// Set stores a copy of state
func (s *StateStore) Set(state models.AppState) {
	c := state.Clone()
	s.mu.Lock()
	s.state = c
	s.set = true
	s.mu.Unlock()
}

// Get returns a copy of the state and whether any cycle has completed
func (s *StateStore) Get() (models.AppState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), s.set
}

// Seq returns the frame sequence of the stored state
func (s *StateStore) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FrameSequence
}

// Reset replaces the state with an empty one
func (s *StateStore) Reset() {
	s.mu.Lock()
	s.state = models.NewAppState()
	s.set = false
	s.mu.Unlock()
}
