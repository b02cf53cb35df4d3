package capture

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
)

const maxConsecutiveErrors = 10

// ffmpegOptions are applied to OpenCV's FFmpeg backend for network sources
var ffmpegOptions = map[string]string{
	"rtsp_transport":      "tcp",
	"buffer_size":         "2097152",
	"max_delay":           "500000",
	"stimeout":            "5000000",
	"rw_timeout":          "5000000",
	"fflags":              "nobuffer",
	"flags":               "low_delay",
	"analyzeduration":     "500000",
	"probesize":           "2000000",
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "2",
}

// VideoSource reads frames from a file, stream URL or camera through gocv
type VideoSource struct {
	mu         sync.Mutex
	spec       models.SourceSpec
	cap        *gocv.VideoCapture
	img        gocv.Mat
	bgr        gocv.Mat
	fps        float64
	frameCount int64
	errors     int
	logger     zerolog.Logger
}

// Open opens spec as a streaming source
func Open(spec models.SourceSpec, logger zerolog.Logger) (Source, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}
	if spec.Kind == models.SourceKindImage {
		return nil, fmt.Errorf("%w: still images are processed with a single render", ErrSourceOpen)
	}

	cap, err := openCapture(spec)
	if err != nil {
		return nil, err
	}

	s := &VideoSource{
		spec:       spec,
		cap:        cap,
		img:        gocv.NewMat(),
		bgr:        gocv.NewMat(),
		fps:        cap.Get(gocv.VideoCaptureFPS),
		frameCount: int64(cap.Get(gocv.VideoCaptureFrameCount)),
		logger:     logger.With().Str("source", spec.Location).Str("kind", spec.Kind.String()).Logger(),
	}

	s.logger.Info().
		Float64("fps", s.fps).
		Int64("frame_count", s.frameCount).
		Float64("width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened")

	return s, nil
}

func openCapture(spec models.SourceSpec) (*gocv.VideoCapture, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)

	switch spec.Kind {
	case models.SourceKindCamera:
		idx, _ := strconv.Atoi(spec.Location)
		cap, err = gocv.OpenVideoCapture(idx)
	case models.SourceKindURL:
		configureFFmpegOptions()
		cap, err = gocv.OpenVideoCaptureWithAPI(spec.Location, gocv.VideoCaptureFFmpeg)
	default:
		if _, statErr := os.Stat(spec.Location); statErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceOpen, statErr)
		}
		cap, err = gocv.OpenVideoCaptureWithAPI(spec.Location, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceOpen, spec.Location, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: %s is not readable", ErrSourceOpen, spec.Location)
	}

	if spec.Kind != models.SourceKindFile {
		cap.Set(gocv.VideoCaptureBufferSize, 1)
	}
	return cap, nil
}

// configureFFmpegOptions sets the environment variable OpenCV's FFmpeg backend reads
func configureFFmpegOptions() {
	keys := make([]string, 0, len(ffmpegOptions))
	for k := range ffmpegOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]string, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, k+";"+ffmpegOptions[k])
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))
}

// Read decodes the next frame. Files end with ErrEndOfStream; live sources
// return ErrReadFailed and are reopened after repeated failures.
func (s *VideoSource) Read() (*models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil, ErrReadFailed
	}

	if ok := s.cap.Read(&s.img); !ok || s.img.Empty() {
		if s.spec.Kind == models.SourceKindFile {
			return nil, ErrEndOfStream
		}
		s.errors++
		if s.errors >= maxConsecutiveErrors {
			s.logger.Warn().Int("consecutive_errors", s.errors).Msg("Too many consecutive errors, reopening capture")
			s.reopen()
		}
		return nil, ErrReadFailed
	}
	s.errors = 0

	mat := s.img
	switch s.img.Channels() {
	case 1:
		gocv.CvtColor(s.img, &s.bgr, gocv.ColorGrayToBGR)
		mat = s.bgr
	case 4:
		gocv.CvtColor(s.img, &s.bgr, gocv.ColorBGRAToBGR)
		mat = s.bgr
	}

	return &models.Frame{
		Data:      mat.ToBytes(),
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: time.Now(),
		Format:    "BGR24",
	}, nil
}

// reopen must be called with s.mu held
func (s *VideoSource) reopen() {
	if s.cap != nil {
		s.cap.Close()
		s.cap = nil
	}
	cap, err := openCapture(s.spec)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to reopen capture")
		return
	}
	s.cap = cap
	s.errors = 0
	s.logger.Info().Msg("Capture reopened")
}

// FPS returns the rate reported by the container, possibly zero
func (s *VideoSource) FPS() float64 {
	return s.fps
}

// FrameCount returns the total frames of a file, or zero for live sources
func (s *VideoSource) FrameCount() int64 {
	if s.spec.Kind != models.SourceKindFile || s.frameCount < 0 {
		return 0
	}
	return s.frameCount
}

// Seek moves a file source to the given frame index
func (s *VideoSource) Seek(frame int64) error {
	if s.spec.Kind != models.SourceKindFile {
		return ErrSeekUnsupported
	}
	if frame < 0 || (s.frameCount > 0 && frame >= s.frameCount) {
		return fmt.Errorf("frame %d out of range [0,%d)", frame, s.frameCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cap == nil {
		return ErrReadFailed
	}
	s.cap.Set(gocv.VideoCapturePosFrames, float64(frame))
	return nil
}

// Close releases the capture
func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap != nil {
		s.cap.Close()
		s.cap = nil
	}
	s.img.Close()
	s.bgr.Close()
	return nil
}
