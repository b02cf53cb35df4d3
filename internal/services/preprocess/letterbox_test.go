package preprocess

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		w, h, size   int
		ratio        float64
		newW, newH   int
		padX, padY   int
	}{
		{"landscape 1080p", 1920, 1080, 640, 1.0 / 3.0, 640, 360, 0, 140},
		{"portrait", 480, 640, 640, 1.0, 480, 640, 80, 0},
		{"square", 320, 320, 640, 2.0, 640, 640, 0, 0},
		{"odd padding", 1000, 700, 640, 0.64, 640, 448, 0, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb := Compute(tt.w, tt.h, tt.size)
			assert.InDelta(t, tt.ratio, lb.Ratio, 1e-9)
			assert.Equal(t, tt.newW, lb.NewW)
			assert.Equal(t, tt.newH, lb.NewH)
			assert.Equal(t, tt.padX, lb.PadX)
			assert.Equal(t, tt.padY, lb.PadY)
		})
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	sizes := [][2]int{{1920, 1080}, {1280, 720}, {640, 480}, {333, 777}, {4000, 3000}}
	boxes := []image.Rectangle{
		image.Rect(10, 10, 30, 30),
		image.Rect(0, 0, 100, 50),
		image.Rect(123, 45, 301, 222),
	}

	for _, sz := range sizes {
		lb := Compute(sz[0], sz[1], 640)
		for _, box := range boxes {
			cx, cy, w, h := lb.ToModel(box)
			got := lb.ToSource(cx, cy, w, h)

			assert.InDelta(t, box.Min.X, got.Min.X, 1, "left %v in %v", box, sz)
			assert.InDelta(t, box.Min.Y, got.Min.Y, 1, "top %v in %v", box, sz)
			assert.InDelta(t, box.Dx(), got.Dx(), 1, "width %v in %v", box, sz)
			assert.InDelta(t, box.Dy(), got.Dy(), 1, "height %v in %v", box, sz)
		}
	}
}

func TestToSourceKnownValues(t *testing.T) {
	lb := Compute(1920, 1080, 640)

	// a 64x32 box centred at (320, 320) in model space
	got := lb.ToSource(320, 320, 64, 32)

	assert.Equal(t, image.Rect(864, 492, 864+192, 492+96), got)
}

func TestApplyPadsWithNeutralGrey(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 360, 640, gocv.MatTypeCV8UC3)
	defer src.Close()

	dst, lb, err := Apply(src, 640)
	require.NoError(t, err)
	defer dst.Close()

	assert.Equal(t, 640, dst.Rows())
	assert.Equal(t, 640, dst.Cols())
	assert.Equal(t, 140, lb.PadY)

	// top border row is grey, content centre keeps the source colour
	assert.Equal(t, uint8(PadValue), dst.GetVecbAt(0, 0)[0])
	centre := dst.GetVecbAt(320, 320)
	assert.Equal(t, uint8(0), centre[0])
	assert.Equal(t, uint8(255), centre[2])
}

func TestApplyEmptyImage(t *testing.T) {
	src := gocv.NewMat()
	defer src.Close()

	_, _, err := Apply(src, 640)
	assert.ErrorIs(t, err, ErrEmptyImage)
}
