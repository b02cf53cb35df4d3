package helpers

import (
	"encoding/base64"
	"fmt"

	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
)

const (
	// JPEG quality settings
	HighQuality   = 95
	MediumQuality = 75
	LowQuality    = 50

	// Maximum snapshot size attached to bus events
	MaxEventImageSize = 200 * 1024
)

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// MatFromFrame wraps the frame bytes in a Mat. The caller must Close it.
func MatFromFrame(frame *models.Frame) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}
	if frame.Width*frame.Height*3 != len(frame.Data) {
		return gocv.NewMat(), fmt.Errorf("frame is %dx%d but carries %d bytes", frame.Width, frame.Height, len(frame.Data))
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	return mat, nil
}

// EncodeJPEG encodes a BGR Mat and returns a copy of the bytes
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if quality <= 0 || quality > 100 {
		quality = HighQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// EncodeBGRToJPEG converts raw BGR bytes to JPEG
func EncodeBGRToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty BGR data")
	}
	mat, err := MatFromFrame(&models.Frame{Data: data, Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return EncodeJPEG(mat, quality)
}

// JPEGDataURL returns the JPEG as a data URL, or nil when it exceeds maxSize
func JPEGDataURL(jpeg []byte, maxSize int) *string {
	if len(jpeg) == 0 || !IsJPEGData(jpeg) {
		return nil
	}
	if maxSize > 0 && len(jpeg) > maxSize {
		return nil
	}
	s := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	return &s
}
