package models

import "image"

// ClassNames are the labels shipped with the parking model, in model output order
var ClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow",
}

// ClassName returns the label for a class id, or "unknown"
func ClassName(id int) string {
	if id < 0 || id >= len(ClassNames) {
		return "unknown"
	}
	return ClassNames[id]
}

// Detection represents a single post-NMS detection in source image coordinates
type Detection struct {
	Box        image.Rectangle `json:"box"`
	ClassID    int             `json:"class_id"`
	Confidence float32         `json:"confidence"`
}

// TrackedObject represents a detection with a persistent tracker identity
type TrackedObject struct {
	ID          int             `json:"id"`
	BBox        image.Rectangle `json:"bbox"`
	ClassID     int             `json:"class_id"`
	Confidence  float32         `json:"confidence"`
	FramesStill int             `json:"frames_still"`
}

// Center returns the integer center of the bounding box
func (o TrackedObject) Center() image.Point {
	return image.Pt(o.BBox.Min.X+o.BBox.Dx()/2, o.BBox.Min.Y+o.BBox.Dy()/2)
}

// MessagePublisher interface for publishing events
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
