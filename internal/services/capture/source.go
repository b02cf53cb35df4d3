package capture

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"parking-monitor-go/internal/models"
)

var (
	ErrSourceOpen      = errors.New("failed to open source")
	ErrEndOfStream     = errors.New("end of stream")
	ErrReadFailed      = errors.New("failed to read frame")
	ErrSeekUnsupported = errors.New("source does not support seeking")
)

// Source produces decoded BGR frames. Returned frames carry no sequence
// number; the pipeline assigns it.
type Source interface {
	Read() (*models.Frame, error)
	FPS() float64
	FrameCount() int64
	Seek(frame int64) error
	Close() error
}

// Opener opens a source for a session
type Opener func(spec models.SourceSpec) (Source, error)

// ResolveFPS returns reported when it is usable, otherwise def
func ResolveFPS(reported, def, max float64) float64 {
	if math.IsNaN(reported) || reported < 1 || reported > max {
		return def
	}
	return reported
}

// ValidateSpec checks that the spec can be opened as a streaming source
func ValidateSpec(spec models.SourceSpec) error {
	if !spec.Kind.IsValid() {
		return fmt.Errorf("unknown source kind %q", spec.Kind)
	}
	if spec.Location == "" {
		return fmt.Errorf("source location is required")
	}
	if spec.Kind == models.SourceKindCamera {
		if _, err := strconv.Atoi(spec.Location); err != nil {
			return fmt.Errorf("camera location must be a device index: %w", err)
		}
	}
	return nil
}

// BackoffDelay returns a jittered exponential delay for the given attempt
func BackoffDelay(attempt int, min, max time.Duration, jitterPct int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * min
	if delay < min {
		delay = min
	}
	if delay > max {
		delay = max
	}
	jitter := time.Duration(float64(delay) * float64(jitterPct) / 100 * (rand.Float64()*2 - 1))
	return delay + jitter
}
