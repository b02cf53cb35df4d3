package detection

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/models"
)

// Detector runs inference on a frame and returns post-NMS detections in
// source image coordinates.
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
	Close() error
}

// Options holds the thresholds shared by all backends
type Options struct {
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
	NumClasses    int
}

// OptionsFromConfig extracts detector thresholds from the service config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InputSize:     cfg.InputSize,
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		NumClasses:    cfg.NumClasses,
	}
}

// New creates the detector backend selected in the config. A failure here is a
// session-setup error: the model is missing or the backend cannot be reached.
func New(cfg *config.Config, logger zerolog.Logger) (Detector, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.DetectorBackend {
	case "onnx":
		return NewONNXDetector(cfg.ModelPath, opts, logger)
	case "grpc":
		return NewRemoteDetector(cfg.DetectorGRPCURL, cfg.DetectorTimeout, opts, logger)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

// SafeDetect calls d and converts a panic into an error. Callers treat any
// error as "no detections for this frame".
func SafeDetect(ctx context.Context, d Detector, frame *models.Frame) (dets []models.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	if d == nil || frame.Empty() {
		return nil, nil
	}
	return d.Detect(ctx, frame)
}
