package tracking

import (
	"image"
	"math"
	"sort"
	"sync"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/models"
)

// Tracker assigns persistent ids to per-frame detections. Update is called
// once per inference cycle with NMS-filtered detections. DropTracks forgets
// every track but never reissues an id; Reset also restarts ids.
type Tracker interface {
	Update(boxes []image.Rectangle, classIDs []int, confidences []float32) []models.TrackedObject
	DropTracks()
	Reset()
}

// Params configures the IoU tracker
type Params struct {
	TrackBuffer int     // updates a track survives without a match
	TrackThresh float32 // minimum confidence to start a new track
	MatchIoU    float64 // minimum IoU to associate a detection with a track
	StillPixels float64 // center displacement at or below this counts as still
}

// ParamsFromConfig extracts tracker parameters from the service config
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		TrackBuffer: cfg.TrackBuffer,
		TrackThresh: cfg.TrackThresh,
		MatchIoU:    cfg.MatchIoU,
		StillPixels: cfg.StillPixels,
	}
}

type track struct {
	id          int
	box         image.Rectangle
	classID     int
	confidence  float32
	framesStill int
	lost        int
}

// IoUTracker is a greedy IoU association tracker with a stillness counter
type IoUTracker struct {
	params Params

	mu     sync.Mutex
	tracks []*track
	nextID int
}

// NewIoUTracker creates a tracker with the given parameters
func NewIoUTracker(params Params) *IoUTracker {
	return &IoUTracker{params: params, nextID: 1}
}

// Update associates detections with existing tracks and returns the tracks
// matched in this cycle, ordered by id.
func (t *IoUTracker) Update(boxes []image.Rectangle, classIDs []int, confidences []float32) []models.TrackedObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(boxes)
	if len(classIDs) < n {
		n = len(classIDs)
	}
	if len(confidences) < n {
		n = len(confidences)
	}

	type pair struct {
		track, det int
		iou        float64
	}
	var pairs []pair
	for ti, tr := range t.tracks {
		for di := 0; di < n; di++ {
			if classIDs[di] != tr.classID {
				continue
			}
			if iou := IoU(tr.box, boxes[di]); iou >= t.params.MatchIoU {
				pairs = append(pairs, pair{ti, di, iou})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].iou > pairs[j].iou })

	trackUsed := make([]bool, len(t.tracks))
	detUsed := make([]bool, n)
	matched := make([]*track, 0, n)

	for _, p := range pairs {
		if trackUsed[p.track] || detUsed[p.det] {
			continue
		}
		trackUsed[p.track] = true
		detUsed[p.det] = true

		tr := t.tracks[p.track]
		if centerShift(tr.box, boxes[p.det]) <= t.params.StillPixels {
			tr.framesStill++
		} else {
			tr.framesStill = 0
		}
		tr.box = boxes[p.det]
		tr.confidence = confidences[p.det]
		tr.lost = 0
		matched = append(matched, tr)
	}

	kept := t.tracks[:0]
	for i, tr := range t.tracks {
		if !trackUsed[i] {
			tr.lost++
			if tr.lost > t.params.TrackBuffer {
				continue
			}
		}
		kept = append(kept, tr)
	}
	t.tracks = kept

	for di := 0; di < n; di++ {
		if detUsed[di] || confidences[di] < t.params.TrackThresh {
			continue
		}
		tr := &track{
			id:         t.nextID,
			box:        boxes[di],
			classID:    classIDs[di],
			confidence: confidences[di],
		}
		t.nextID++
		t.tracks = append(t.tracks, tr)
		matched = append(matched, tr)
	}

	out := make([]models.TrackedObject, 0, len(matched))
	for _, tr := range matched {
		out = append(out, models.TrackedObject{
			ID:          tr.id,
			BBox:        tr.box,
			ClassID:     tr.classID,
			Confidence:  tr.confidence,
			FramesStill: tr.framesStill,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops all tracks and restarts ids at 1
func (t *IoUTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracks = nil
	t.nextID = 1
}

// DropTracks forgets every track. New tracks continue the id sequence.
func (t *IoUTracker) DropTracks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
}

// Len returns the number of live tracks, including lost ones still buffered
func (t *IoUTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// IoU returns the intersection over union of two rectangles
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

func centerShift(a, b image.Rectangle) float64 {
	ax := float64(a.Min.X+a.Max.X) / 2
	ay := float64(a.Min.Y+a.Max.Y) / 2
	bx := float64(b.Min.X+b.Max.X) / 2
	by := float64(b.Min.Y+b.Max.Y) / 2
	return math.Hypot(ax-bx, ay-by)
}
