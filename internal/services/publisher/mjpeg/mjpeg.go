package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"parking-monitor-go/internal/helpers"
	"parking-monitor-go/internal/models"
)

const boundary = "frame"

// Publisher keeps the latest rendered frame as JPEG and fans it out to every
// connected MJPEG client
type Publisher struct {
	quality int
	logger  zerolog.Logger

	jpegMutex  sync.RWMutex
	latestJPEG []byte
	latestSeq  uint64

	notifyMutex sync.Mutex
	subscribers map[chan struct{}]struct{}
}

func NewPublisher(quality int, logger zerolog.Logger) *Publisher {
	if quality <= 0 || quality > 100 {
		quality = helpers.HighQuality
	}
	return &Publisher{
		quality:     quality,
		logger:      logger,
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// PublishFrame encodes frame and wakes the streamers
func (p *Publisher) PublishFrame(frame *models.ProcessedFrame) error {
	if frame == nil || len(frame.Data) == 0 {
		return nil
	}

	jpeg, err := helpers.EncodeBGRToJPEG(frame.Data, frame.Width, frame.Height, p.quality)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", frame.Seq, err)
	}

	p.jpegMutex.Lock()
	p.latestJPEG = jpeg
	p.latestSeq = frame.Seq
	p.jpegMutex.Unlock()

	p.notifyStreamers()
	return nil
}

// LatestJPEG returns the last encoded frame
func (p *Publisher) LatestJPEG() ([]byte, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	if len(p.latestJPEG) == 0 {
		return nil, false
	}
	return p.latestJPEG, true
}

// Clients returns the number of connected streamers
func (p *Publisher) Clients() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.subscribers)
}

func (p *Publisher) notifyStreamers() {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	for ch := range p.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.subscribers[ch] = struct{}{}
	p.notifyMutex.Unlock()
	return ch
}

func (p *Publisher) unsubscribe(ch chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.subscribers, ch)
	p.notifyMutex.Unlock()
}

// StreamMJPEGHTTP writes a multipart/x-mixed-replace stream until the client
// goes away
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.subscribe()
	defer p.unsubscribe(notify)

	send := func(jpeg []byte) bool {
		if err := writePart(w, jpeg); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, ok := p.LatestJPEG()
	if !ok {
		first = p.placeholder()
	}
	if len(first) > 0 && !send(first) {
		return
	}

	keepaliveTicker := time.NewTicker(2 * time.Second)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}

		if buf, ok := p.LatestJPEG(); ok {
			if !send(buf) {
				return
			}
		}
	}
}

func writePart(w io.Writer, jpeg []byte) error {
	if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func (p *Publisher) placeholder() []byte {
	mat := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()

	mat.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&mat, "No session", image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)

	jpeg, err := helpers.EncodeJPEG(mat, p.quality)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Failed to encode placeholder")
		return nil
	}
	return jpeg
}

// Reset forgets the last frame so new clients see the placeholder
func (p *Publisher) Reset() {
	p.jpegMutex.Lock()
	p.latestJPEG = nil
	p.latestSeq = 0
	p.jpegMutex.Unlock()
}

func (p *Publisher) Shutdown() {
	p.logger.Info().Int("clients", p.Clients()).Msg("MJPEG publisher shutting down")
}
