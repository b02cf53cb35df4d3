package models

import (
	"math"
	"time"
)

// StillImageSeq tags single-shot renders so detections are never treated as
// ahead of the displayed frame.
const StillImageSeq uint64 = math.MaxUint64

// Frame represents a decoded BGR frame and its position in the session
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
	Format    string
}

// Clone returns a deep copy so the register never shares a buffer with a reader
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// Empty reports whether the frame carries no pixels
func (f *Frame) Empty() bool {
	return f == nil || len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}

// ProcessedFrame represents a frame after overlay rendering
type ProcessedFrame struct {
	Data            []byte // Annotated BGR data
	Width           int
	Height          int
	Seq             uint64 // Sequence of the raw frame this render is based on
	StateSeq        uint64 // Sequence of the AppState used for the overlay
	Timestamp       time.Time
	DetectionsDrawn bool
	ObjectCount     int
	FPS             float64
}

// Clone returns a deep copy of the processed frame
func (p *ProcessedFrame) Clone() *ProcessedFrame {
	if p == nil {
		return nil
	}
	c := *p
	c.Data = make([]byte, len(p.Data))
	copy(c.Data, p.Data)
	return &c
}
