package pipeline

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyWindow keeps the most recent inference latencies
type LatencyWindow struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewLatencyWindow creates a window of size samples
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 100
	}
	return &LatencyWindow{samples: make([]float64, size)}
}

// Add records one latency
func (w *LatencyWindow) Add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = float64(d)
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

// MeanStdDev returns the mean and standard deviation of the window
func (w *LatencyWindow) MeanStdDev() (time.Duration, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.next
	if w.full {
		n = len(w.samples)
	}
	switch n {
	case 0:
		return 0, 0
	case 1:
		return time.Duration(w.samples[0]), 0
	}
	mean, std := stat.MeanStdDev(w.samples[:n], nil)
	return time.Duration(mean), time.Duration(std)
}

// Reset drops all samples
func (w *LatencyWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next = 0
	w.full = false
}
