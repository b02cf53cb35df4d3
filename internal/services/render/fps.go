package render

import (
	"sync"
	"time"
)

// FPSMeter smooths the render rate with an exponential moving average
type FPSMeter struct {
	mu    sync.Mutex
	alpha float64
	fps   float64
	last  time.Time
}

// NewFPSMeter creates a meter with the given smoothing factor
func NewFPSMeter(alpha float64) *FPSMeter {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &FPSMeter{alpha: alpha}
}

// Tick records a rendered frame at now and returns the smoothed rate
func (m *FPSMeter) Tick(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last.IsZero() {
		m.last = now
		return m.fps
	}
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if dt <= 0 {
		return m.fps
	}

	inst := 1 / dt
	if m.fps == 0 {
		m.fps = inst
	} else {
		m.fps = m.alpha*inst + (1-m.alpha)*m.fps
	}
	return m.fps
}

// Value returns the current smoothed rate
func (m *FPSMeter) Value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fps
}

// Reset forgets all samples
func (m *FPSMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fps = 0
	m.last = time.Time{}
}
