package render

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"parking-monitor-go/internal/helpers"
	"parking-monitor-go/internal/models"
)

const (
	fontFace      = gocv.FontHersheySimplex
	labelScale    = 0.5
	labelWeight   = 1
	statsScale    = 0.6
	statsWeight   = 2
	boxThickness  = 2
	slotThickness = 2
	violationMix  = 0.3
	paletteSize   = 100
	paletteSeed   = 42
)

var (
	colorGreen = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorRed   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	statsPos   = image.Pt(10, 25)
)

// Renderer draws the slot overlay, tracked cars and the stats line onto frames
type Renderer struct {
	mu             sync.Mutex
	labels         *LabelCache
	slotCache      SlotCache
	overlay        gocv.Mat
	overlayMask    gocv.Mat
	palette        []color.RGBA
	parkingEnabled bool

	// slot statuses and car count of the last state drawn with its cars
	shownStatuses map[int]models.SlotStatus
	shownCount    int
}

// NewRenderer creates a renderer whose label cache collects above labelCacheMax entries
func NewRenderer(labelCacheMax int) *Renderer {
	return &Renderer{
		labels:      NewLabelCache(labelCacheMax, measureLabel),
		overlay:     gocv.NewMat(),
		overlayMask: gocv.NewMat(),
		palette:     newPalette(paletteSize, paletteSeed),
	}
}

func measureLabel(text string) (image.Point, int) {
	return gocv.GetTextSizeWithBaseline(text, fontFace, labelScale, labelWeight)
}

func newPalette(n int, seed int64) []color.RGBA {
	rng := rand.New(rand.NewSource(seed))
	p := make([]color.RGBA, n)
	for i := range p {
		p[i] = color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 0}
	}
	return p
}

// SetParkingMode switches labels between track ids and class names
func (r *Renderer) SetParkingMode(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parkingEnabled = enabled
}

// Render draws onto a copy of frame. Car boxes are drawn only when drawCars
// is set; the slot overlay is always drawn. A guarded render keeps the slot
// colours and object count of the last state that was drawn.
func (r *Renderer) Render(frame *models.Frame, state *models.AppState, drawCars bool, slots []models.ParkingSlot, fps float64) (*models.ProcessedFrame, error) {
	src, err := helpers.MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	work := src.Clone()
	src.Close()
	defer work.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	if state == nil {
		empty := models.NewAppState()
		state = &empty
	}

	statuses, count := state.SlotStatuses, len(state.Cars)
	if drawCars {
		r.shownStatuses, r.shownCount = state.SlotStatuses, count
	} else {
		statuses, count = r.guardedStatuses(slots), r.shownCount
	}

	if len(slots) > 0 {
		r.drawSlots(&work, slots, statuses, frame.Width, frame.Height)
	}

	if drawCars {
		r.drawCars(&work, state, frame.Width, frame.Height)
	}

	stats := fmt.Sprintf("Obj: %d | FPS: %.0f", count, fps)
	gocv.PutText(&work, stats, statsPos, fontFace, statsScale, colorGreen, statsWeight)

	return &models.ProcessedFrame{
		Data:            work.ToBytes(),
		Width:           frame.Width,
		Height:          frame.Height,
		Seq:             frame.Seq,
		StateSeq:        state.FrameSequence,
		Timestamp:       time.Now(),
		DetectionsDrawn: drawCars,
		ObjectCount:     count,
		FPS:             fps,
	}, nil
}

// guardedStatuses must be called with r.mu held. Slots never shown yet are
// drawn empty.
func (r *Renderer) guardedStatuses(slots []models.ParkingSlot) map[int]models.SlotStatus {
	out := make(map[int]models.SlotStatus, len(slots))
	for _, s := range slots {
		st, ok := r.shownStatuses[s.ID]
		if !ok {
			st = models.SlotStatusEmpty
		}
		out[s.ID] = st
	}
	return out
}

func (r *Renderer) drawSlots(dst *gocv.Mat, slots []models.ParkingSlot, statuses map[int]models.SlotStatus, width, height int) {
	if r.slotCache.Stale(slots, statuses, width, height) || r.overlay.Empty() {
		r.redrawOverlay(slots, statuses, width, height)
	}
	r.overlay.CopyToWithMask(dst, r.overlayMask)
}

func (r *Renderer) redrawOverlay(slots []models.ParkingSlot, statuses map[int]models.SlotStatus, width, height int) {
	r.overlay.Close()
	r.overlayMask.Close()

	r.overlay = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	for _, s := range slots {
		if len(s.Polygon) < 3 {
			continue
		}
		c := colorGreen
		if effectiveStatus(s, statuses) == models.SlotStatusOccupied {
			c = colorRed
		}

		pts := gocv.NewPointsVectorFromPoints([][]image.Point{s.Polygon})
		gocv.Polylines(&r.overlay, pts, true, c, slotThickness)
		pts.Close()

		b := s.Bounds()
		center := image.Pt(b.Min.X+b.Dx()/2-8, b.Min.Y+b.Dy()/2+6)
		gocv.PutText(&r.overlay, fmt.Sprintf("%d", s.ID), center, fontFace, labelScale, c, labelWeight)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(r.overlay, &gray, gocv.ColorBGRToGray)

	r.overlayMask = gocv.NewMat()
	gocv.Threshold(gray, &r.overlayMask, 0, 255, gocv.ThresholdBinary)
}

func (r *Renderer) drawCars(dst *gocv.Mat, state *models.AppState, width, height int) {
	bounds := image.Rect(0, 0, width, height)
	active := make(map[int]struct{}, len(state.Cars))

	for _, car := range state.Cars {
		active[car.ID] = struct{}{}
		box := car.BBox.Intersect(bounds)
		if box.Empty() {
			continue
		}

		violating := state.IsViolating(car.ID)
		c := r.palette[abs(car.ClassID)%len(r.palette)]
		if violating {
			c = colorRed
			roi := dst.Region(box)
			tint := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), box.Dy(), box.Dx(), gocv.MatTypeCV8UC3)
			gocv.AddWeighted(roi, 1-violationMix, tint, violationMix, 0, &roi)
			tint.Close()
			roi.Close()
		}
		gocv.Rectangle(dst, box, c, boxThickness)

		label := r.labels.Get(car.ID, LabelText(car, violating, r.parkingEnabled))
		top := box.Min.Y - label.Size.Y - label.Baseline
		if top < 0 {
			top = box.Min.Y
		}
		bg := image.Rect(box.Min.X, top, box.Min.X+label.Size.X, top+label.Size.Y+label.Baseline)
		gocv.Rectangle(dst, bg, c, -1)
		gocv.PutText(dst, label.Text, image.Pt(box.Min.X, top+label.Size.Y), fontFace, labelScale, colorWhite, labelWeight)
	}

	r.labels.Collect(active)
}

// Reset clears both caches
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels.Reset()
	r.slotCache.Reset()
	r.shownStatuses = nil
	r.shownCount = 0
}

// Close releases the cached overlay
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlay.Close()
	r.overlayMask.Close()
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
