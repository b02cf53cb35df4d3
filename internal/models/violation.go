package models

import (
	"image"
	"time"
)

// ViolationType represents the parking rule that was broken
type ViolationType string

const (
	ViolationTypeOverstay  ViolationType = "Overstay"
	ViolationTypeWrongSlot ViolationType = "WrongSlot"
)

// String returns the string representation of ViolationType
func (v ViolationType) String() string {
	return string(v)
}

// IsValid checks if the violation type is valid
func (v ViolationType) IsValid() bool {
	switch v {
	case ViolationTypeOverstay, ViolationTypeWrongSlot:
		return true
	default:
		return false
	}
}

// ViolationRecord is one deduplicated violation. Only DurationSeconds changes after creation.
type ViolationRecord struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	CarID           int             `json:"car_id"`
	Type            ViolationType   `json:"type"`
	BBox            image.Rectangle `json:"bbox"`
	FrameSequence   uint64          `json:"frame_sequence"`
	CaptureTime     time.Time       `json:"capture_time"`
	DurationSeconds int             `json:"duration_seconds"`
	Snapshot        []byte          `json:"-"` // JPEG crop of the car
	Visualization   []byte          `json:"-"` // JPEG of the dimmed frame with the car highlighted
}

// ViolationKey identifies the (car, rule) pair a record deduplicates on
type ViolationKey struct {
	CarID int
	Type  ViolationType
}

// Key returns the dedup key of the record
func (r ViolationRecord) Key() ViolationKey {
	return ViolationKey{CarID: r.CarID, Type: r.Type}
}

// ViolationEvent represents the structure sent to NATS
type ViolationEvent struct {
	ID            string        `json:"id"`
	WorkerID      string        `json:"worker_id"`
	SessionID     string        `json:"session_id"`
	CarID         int           `json:"car_id"`
	Type          ViolationType `json:"type"`
	BBox          [4]int        `json:"bbox"` // x, y, w, h
	FrameSequence uint64        `json:"frame_sequence"`
	CaptureTime   time.Time     `json:"capture_time"`
	Snapshot      *string       `json:"snapshot,omitempty"` // base64 JPEG
}

// NewViolationEvent builds the bus payload for a record
func NewViolationEvent(workerID string, r ViolationRecord, snapshotB64 *string) ViolationEvent {
	return ViolationEvent{
		ID:            r.ID,
		WorkerID:      workerID,
		SessionID:     r.SessionID,
		CarID:         r.CarID,
		Type:          r.Type,
		BBox:          [4]int{r.BBox.Min.X, r.BBox.Min.Y, r.BBox.Dx(), r.BBox.Dy()},
		FrameSequence: r.FrameSequence,
		CaptureTime:   r.CaptureTime,
		Snapshot:      snapshotB64,
	}
}
