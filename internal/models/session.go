package models

import "time"

// SourceKind represents what a session reads frames from
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindURL    SourceKind = "url"
	SourceKindCamera SourceKind = "camera"
	SourceKindImage  SourceKind = "image"
)

// String returns the string representation of SourceKind
func (k SourceKind) String() string {
	return string(k)
}

// IsValid checks if the source kind is valid
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindFile, SourceKindURL, SourceKindCamera, SourceKindImage:
		return true
	default:
		return false
	}
}

// SourceSpec describes the input of a session
type SourceSpec struct {
	Kind           SourceKind `json:"kind"`
	Location       string     `json:"location"`
	ParkingEnabled bool       `json:"parking_enabled"`
}

// SessionStats is a point-in-time view of a running session
type SessionStats struct {
	SessionID       string        `json:"session_id"`
	State           string        `json:"state"`
	Source          SourceSpec    `json:"source"`
	StartedAt       time.Time     `json:"started_at"`
	SourceFPS       float64       `json:"source_fps"`
	RenderFPS       float64       `json:"render_fps"`
	TotalFrames     int64         `json:"total_frames"`
	LatestSeq       uint64        `json:"latest_seq"`
	ProcessedSeq    uint64        `json:"processed_seq"`
	DroppedFrames   uint64        `json:"dropped_frames"`
	ProcessedFrames uint64        `json:"processed_frames"`
	InferenceMean   time.Duration `json:"inference_mean"`
	InferenceStdDev time.Duration `json:"inference_stddev"`
	ObjectCount     int           `json:"object_count"`
	ParkingEnabled  bool          `json:"parking_enabled"`
	Slots           SlotSummary   `json:"slots"`
}
