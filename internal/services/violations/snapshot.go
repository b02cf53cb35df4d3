package violations

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"parking-monitor-go/internal/helpers"
	"parking-monitor-go/internal/models"
)

const (
	dimFactor       = 0.3
	highlightBorder = 3
)

var highlightColor = color.RGBA{R: 255, G: 255, B: 0, A: 0}

// JPEGSnapshotter renders violation evidence with gocv
type JPEGSnapshotter struct {
	Quality int
}

// NewJPEGSnapshotter creates a snapshotter encoding at the given JPEG quality
func NewJPEGSnapshotter(quality int) *JPEGSnapshotter {
	return &JPEGSnapshotter{Quality: quality}
}

// Crop returns the JPEG of the box region
func (s *JPEGSnapshotter) Crop(frame *models.Frame, box image.Rectangle) ([]byte, error) {
	mat, err := helpers.MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	box = box.Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	roi := mat.Region(box)
	defer roi.Close()

	crop := roi.Clone()
	defer crop.Close()

	return helpers.EncodeJPEG(crop, s.Quality)
}

// Visualize returns the whole frame dimmed with the box region kept at full
// brightness and outlined
func (s *JPEGSnapshotter) Visualize(frame *models.Frame, box image.Rectangle) ([]byte, error) {
	mat, err := helpers.MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	dimmed := gocv.NewMat()
	defer dimmed.Close()
	gocv.AddWeighted(mat, dimFactor, mat, 0, 0, &dimmed)

	box = box.Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	src := mat.Region(box)
	defer src.Close()
	dst := dimmed.Region(box)
	src.CopyTo(&dst)
	dst.Close()

	gocv.Rectangle(&dimmed, box, highlightColor, highlightBorder)

	return helpers.EncodeJPEG(dimmed, s.Quality)
}
