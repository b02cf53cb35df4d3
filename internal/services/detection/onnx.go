package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/preprocess"
)

// ONNXDetector runs a YOLO ONNX export through the OpenCV dnn module on the CPU
type ONNXDetector struct {
	opts   Options
	logger zerolog.Logger

	mu    sync.Mutex
	net   gocv.Net
	input gocv.Mat // reused letterbox buffer
}

// NewONNXDetector loads the model. A missing or unreadable model is a hard error.
func NewONNXDetector(modelPath string, opts Options, logger zerolog.Logger) (*ONNXDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info().
		Str("model", modelPath).
		Int("input_size", opts.InputSize).
		Float32("conf_threshold", opts.ConfThreshold).
		Float32("nms_threshold", opts.NMSThreshold).
		Msg("ONNX detector loaded")

	return &ONNXDetector{
		opts:   opts,
		logger: logger,
		net:    net,
		input:  gocv.NewMat(),
	}, nil
}

// Detect letterboxes the frame, runs a forward pass and decodes the output
func (d *ONNXDetector) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, nil
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer src.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	lb, err := preprocess.ApplyInto(src, &d.input, d.opts.InputSize)
	if err != nil {
		return nil, err
	}

	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(d.input, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("%w: empty forward result", ErrMalformedOutput)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	candidates, err := Decode(data, out.Size(), lb, d.opts.NumClasses, d.opts.ConfThreshold)
	if err != nil {
		return nil, err
	}

	return NMS(candidates, d.opts.ConfThreshold, d.opts.NMSThreshold), nil
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.input.Close()
	return d.net.Close()
}
