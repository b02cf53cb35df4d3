package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-monitor-go/internal/models"
	"parking-monitor-go/internal/services/preprocess"
)

// channelMajor builds a [1, 4+nc, N] tensor from row-major detections
func channelMajor(rows [][]float32) ([]float32, []int) {
	channels := len(rows[0])
	data := make([]float32, channels*len(rows))
	for r, row := range rows {
		for c, v := range row {
			data[c*len(rows)+r] = v
		}
	}
	return data, []int{1, channels, len(rows)}
}

func identity() preprocess.Letterbox {
	return preprocess.Compute(640, 640, 640)
}

func TestDecodeChannelMajor(t *testing.T) {
	// cx, cy, w, h, then scores for 3 classes; padded to 8 rows so rows > channels
	rows := [][]float32{
		{100, 100, 20, 40, 0.1, 0.9, 0.2},
		{300, 300, 10, 10, 0.1, 0.2, 0.24}, // below threshold
		{500, 200, 50, 50, 0.6, 0.1, 0.1},
	}
	for len(rows) < 8 {
		rows = append(rows, []float32{0, 0, 0, 0, 0, 0, 0})
	}
	data, dims := channelMajor(rows)

	got, err := Decode(data, dims, identity(), 3, 0.25)
	require.NoError(t, err)

	require.Equal(t, 2, got.Len())
	assert.Equal(t, image.Rect(90, 80, 110, 120), got.Boxes[0])
	assert.Equal(t, 1, got.ClassIDs[0])
	assert.InDelta(t, 0.9, got.Scores[0], 1e-6)
	assert.Equal(t, image.Rect(475, 175, 525, 225), got.Boxes[1])
	assert.Equal(t, 0, got.ClassIDs[1])
}

func TestDecodeRowMajor(t *testing.T) {
	// [1, N, 4+nc] with N > channels
	data := make([]float32, 8*6)
	copy(data, []float32{320, 320, 64, 32, 0.05, 0.8})

	got, err := Decode(data, []int{1, 8, 6}, preprocess.Compute(1920, 1080, 640), 2, 0.25)
	require.NoError(t, err)

	require.Equal(t, 1, got.Len())
	assert.Equal(t, image.Rect(864, 492, 1056, 588), got.Boxes[0])
	assert.Equal(t, 1, got.ClassIDs[0])
}

func TestDecodeChannelMajorWithFewAnchors(t *testing.T) {
	// [1, 7, 3]: fewer anchors than channels, still channel-major
	data, dims := channelMajor([][]float32{
		{100, 100, 20, 40, 0.1, 0.9, 0.2},
		{300, 300, 10, 10, 0.1, 0.2, 0.1},
		{500, 200, 50, 50, 0.6, 0.1, 0.1},
	})
	require.Equal(t, []int{1, 7, 3}, dims)

	got, err := Decode(data, dims, identity(), 3, 0.25)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, image.Rect(90, 80, 110, 120), got.Boxes[0])
	assert.Equal(t, 1, got.ClassIDs[0])
	assert.Equal(t, image.Rect(475, 175, 525, 225), got.Boxes[1])
	assert.Equal(t, 0, got.ClassIDs[1])
}

func TestDecodeLimitsClassesToConfigured(t *testing.T) {
	// class 2 scores highest but only two classes are configured
	rows := [][]float32{{100, 100, 10, 10, 0.3, 0.4, 0.99}}
	for len(rows) < 8 {
		rows = append(rows, []float32{0, 0, 0, 0, 0, 0, 0})
	}
	data, dims := channelMajor(rows)

	got, err := Decode(data, dims, identity(), 2, 0.25)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 1, got.ClassIDs[0])
	assert.InDelta(t, 0.4, got.Scores[0], 1e-6)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []float32
		dims []int
	}{
		{"two dims", make([]float32, 10), []int{2, 5}},
		{"batch of two", make([]float32, 100), []int{2, 5, 10}},
		{"too few channels", make([]float32, 40), []int{1, 4, 10}},
		{"short buffer", make([]float32, 10), []int{1, 7, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, tt.dims, identity(), 3, 0.25)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestNMSSuppressesOverlaps(t *testing.T) {
	c := Candidates{
		Boxes: []image.Rectangle{
			image.Rect(0, 0, 100, 100),
			image.Rect(5, 5, 105, 105),
			image.Rect(300, 300, 350, 350),
		},
		Scores:   []float32{0.9, 0.8, 0.7},
		ClassIDs: []int{2, 2, 7},
	}

	dets := NMS(c, 0.25, 0.45)

	require.Len(t, dets, 2)
	assert.Equal(t, image.Rect(0, 0, 100, 100), dets[0].Box)
	assert.Equal(t, 7, dets[1].ClassID)
}

func TestNMSEmpty(t *testing.T) {
	assert.Nil(t, NMS(Candidates{}, 0.25, 0.45))
}

type panicDetector struct{}

func (panicDetector) Detect(context.Context, *models.Frame) ([]models.Detection, error) {
	panic("tensor exploded")
}
func (panicDetector) Close() error { return nil }

type failingDetector struct{}

func (failingDetector) Detect(context.Context, *models.Frame) ([]models.Detection, error) {
	return []models.Detection{{ClassID: 1}}, errors.New("backend down")
}
func (failingDetector) Close() error { return nil }

func TestSafeDetect(t *testing.T) {
	frame := &models.Frame{Data: make([]byte, 12), Width: 2, Height: 2}

	dets, err := SafeDetect(context.Background(), panicDetector{}, frame)
	assert.Error(t, err)
	assert.Nil(t, dets)

	_, err = SafeDetect(context.Background(), failingDetector{}, frame)
	assert.EqualError(t, err, "backend down")

	dets, err = SafeDetect(context.Background(), panicDetector{}, &models.Frame{})
	assert.NoError(t, err, "empty frames never reach the backend")
	assert.Nil(t, dets)
}
