package violations

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
)

func solidFrame(w, h int, v byte) *models.Frame {
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = v
	}
	return &models.Frame{Data: data, Width: w, Height: h}
}

func TestCropSizeMatchesBox(t *testing.T) {
	s := NewJPEGSnapshotter(90)
	out, err := s.Crop(solidFrame(64, 48, 200), image.Rect(8, 4, 40, 36))
	require.NoError(t, err)

	img, err := gocv.IMDecode(out, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 32, img.Cols())
	assert.Equal(t, 32, img.Rows())
}

func TestVisualizeDimsOutsideBox(t *testing.T) {
	s := NewJPEGSnapshotter(100)
	out, err := s.Visualize(solidFrame(64, 64, 200), image.Rect(16, 16, 48, 48))
	require.NoError(t, err)

	img, err := gocv.IMDecode(out, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()
	require.Equal(t, 64, img.Cols())

	outside := img.GetVecbAt(2, 2)
	inside := img.GetVecbAt(32, 32)
	assert.InDelta(t, 60, int(outside[0]), 6)
	assert.InDelta(t, 200, int(inside[0]), 6)
}

func TestSnapshotRejectsBadFrame(t *testing.T) {
	s := NewJPEGSnapshotter(90)
	_, err := s.Crop(&models.Frame{Data: []byte{1, 2, 3}, Width: 4, Height: 4}, image.Rect(0, 0, 2, 2))
	assert.Error(t, err)
}
