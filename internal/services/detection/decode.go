package detection

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/preprocess"
)

var ErrMalformedOutput = errors.New("malformed model output")

// Candidates are pre-NMS detections in source coordinates
type Candidates struct {
	Boxes    []image.Rectangle
	Scores   []float32
	ClassIDs []int
}

// Len returns the number of candidates
func (c Candidates) Len() int {
	return len(c.Boxes)
}

// Decode interprets a YOLOv8/11 output tensor. Both [1, 4+nc, N] (channel-major,
// the default export) and [1, N, 4+nc] layouts are accepted. The axis of
// length 4+numClasses is the channel axis; when neither or both match, the
// shorter axis is.
func Decode(data []float32, dims []int, lb preprocess.Letterbox, numClasses int, conf float32) (Candidates, error) {
	var out Candidates

	if len(dims) != 3 || dims[0] != 1 {
		return out, fmt.Errorf("%w: dims %v", ErrMalformedOutput, dims)
	}

	channels, rows := dims[1], dims[2]
	channelMajor := true
	want := numClasses + 4
	switch {
	case numClasses > 0 && dims[1] == want && dims[2] != want:
	case numClasses > 0 && dims[2] == want && dims[1] != want:
		channels, rows = rows, channels
		channelMajor = false
	case channels > rows:
		channels, rows = rows, channels
		channelMajor = false
	}
	if channels < 5 || rows <= 0 {
		return out, fmt.Errorf("%w: dims %v", ErrMalformedOutput, dims)
	}
	if len(data) < channels*rows {
		return out, fmt.Errorf("%w: %d values for dims %v", ErrMalformedOutput, len(data), dims)
	}

	at := func(row, ch int) float32 {
		if channelMajor {
			return data[ch*rows+row]
		}
		return data[row*channels+ch]
	}

	classes := channels - 4
	if numClasses > 0 && numClasses < classes {
		classes = numClasses
	}

	for i := 0; i < rows; i++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < classes; c++ {
			if s := at(i, 4+c); bestClass < 0 || s > bestScore {
				bestClass, bestScore = c, s
			}
		}
		if bestScore <= conf {
			continue
		}

		box := lb.ToSource(at(i, 0), at(i, 1), at(i, 2), at(i, 3))
		out.Boxes = append(out.Boxes, box)
		out.Scores = append(out.Scores, bestScore)
		out.ClassIDs = append(out.ClassIDs, bestClass)
	}

	return out, nil
}

// NMS runs class-agnostic non-max suppression and returns the surviving detections
func NMS(c Candidates, conf, nms float32) []models.Detection {
	if c.Len() == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(c.Boxes, c.Scores, conf, nms)

	dets := make([]models.Detection, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= c.Len() {
			continue
		}
		dets = append(dets, models.Detection{
			Box:        c.Boxes[idx],
			ClassID:    c.ClassIDs[idx],
			Confidence: c.Scores[idx],
		})
	}
	return dets
}
