package capture

import (
	"fmt"
	"os"
	"time"

	"gocv.io/x/gocv"

	"parking-monitor-go/internal/models"
)

// LoadImage decodes a still image from disk as a BGR frame
func LoadImage(path string) (*models.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: cannot decode image %s", ErrSourceOpen, path)
	}

	return &models.Frame{
		Data:      img.ToBytes(),
		Width:     img.Cols(),
		Height:    img.Rows(),
		Seq:       models.StillImageSeq,
		Timestamp: time.Now(),
		Format:    "BGR24",
	}, nil
}
