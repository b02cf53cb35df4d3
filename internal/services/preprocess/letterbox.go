package preprocess

import (
	"errors"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// PadValue is the neutral grey used for letterbox borders
const PadValue = 114

var ErrEmptyImage = errors.New("empty input image")

// Letterbox describes how a source image was fitted into the square model input
type Letterbox struct {
	Size  int
	Ratio float64
	NewW  int
	NewH  int
	PadX  int
	PadY  int
}

// Compute returns the letterbox geometry for a width x height image and a square input of size.
func Compute(width, height, size int) Letterbox {
	if width <= 0 || height <= 0 || size <= 0 {
		return Letterbox{Size: size, Ratio: 1}
	}
	r := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	newW := int(math.Round(float64(width) * r))
	newH := int(math.Round(float64(height) * r))
	return Letterbox{
		Size:  size,
		Ratio: r,
		NewW:  newW,
		NewH:  newH,
		PadX:  (size - newW) / 2,
		PadY:  (size - newH) / 2,
	}
}

// ToSource maps a model-space box given as center and size back to source pixels.
func (lb Letterbox) ToSource(cx, cy, w, h float32) image.Rectangle {
	r := lb.Ratio
	if r <= 0 {
		r = 1
	}
	left := int((float64(cx) - 0.5*float64(w) - float64(lb.PadX)) / r)
	top := int((float64(cy) - 0.5*float64(h) - float64(lb.PadY)) / r)
	width := int(float64(w) / r)
	height := int(float64(h) / r)
	return image.Rect(left, top, left+width, top+height)
}

// ToModel maps a source rectangle into model space as center and size.
func (lb Letterbox) ToModel(rect image.Rectangle) (cx, cy, w, h float32) {
	r := lb.Ratio
	w = float32(float64(rect.Dx()) * r)
	h = float32(float64(rect.Dy()) * r)
	cx = float32(float64(rect.Min.X)*r+float64(lb.PadX)) + 0.5*w
	cy = float32(float64(rect.Min.Y)*r+float64(lb.PadY)) + 0.5*h
	return cx, cy, w, h
}

// Content returns the region of the model input covered by the resized image
func (lb Letterbox) Content() image.Rectangle {
	return image.Rect(lb.PadX, lb.PadY, lb.PadX+lb.NewW, lb.PadY+lb.NewH)
}

// Apply letterboxes src into a new size x size Mat. The caller owns the result.
func Apply(src gocv.Mat, size int) (gocv.Mat, Letterbox, error) {
	dst := gocv.NewMat()
	lb, err := ApplyInto(src, &dst, size)
	if err != nil {
		dst.Close()
		return gocv.NewMat(), lb, err
	}
	return dst, lb, nil
}

// ApplyInto letterboxes src into dst, reallocating dst only when its shape differs.
func ApplyInto(src gocv.Mat, dst *gocv.Mat, size int) (Letterbox, error) {
	if src.Empty() {
		return Letterbox{}, ErrEmptyImage
	}
	lb := Compute(src.Cols(), src.Rows(), size)

	pad := gocv.NewScalar(PadValue, PadValue, PadValue, 0)
	if dst.Empty() || dst.Rows() != size || dst.Cols() != size || dst.Type() != src.Type() {
		dst.Close()
		*dst = gocv.NewMatWithSizeFromScalar(pad, size, size, src.Type())
	} else {
		dst.SetTo(pad)
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(lb.NewW, lb.NewH), 0, 0, gocv.InterpolationLinear)

	roi := dst.Region(lb.Content())
	defer roi.Close()
	resized.CopyTo(&roi)

	return lb, nil
}
