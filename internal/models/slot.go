package models

import "image"

// SlotStatus represents the occupancy state of a parking slot
type SlotStatus string

const (
	SlotStatusEmpty    SlotStatus = "EMPTY"
	SlotStatusOccupied SlotStatus = "OCCUPIED"
)

// String returns the string representation of SlotStatus
func (s SlotStatus) String() string {
	return string(s)
}

// IsValid checks if the slot status is valid
func (s SlotStatus) IsValid() bool {
	switch s {
	case SlotStatusEmpty, SlotStatusOccupied:
		return true
	default:
		return false
	}
}

// ParkingSlot is one user-defined parking space
type ParkingSlot struct {
	ID               int           `json:"id"`
	Polygon          []image.Point `json:"polygon"`
	Status           SlotStatus    `json:"status"`
	OccupancyPercent float64       `json:"occupancy_percent"`
}

// Clone returns a copy that does not share the polygon slice
func (s ParkingSlot) Clone() ParkingSlot {
	c := s
	c.Polygon = append([]image.Point(nil), s.Polygon...)
	return c
}

// Bounds returns the axis-aligned bounding rectangle of the polygon
func (s ParkingSlot) Bounds() image.Rectangle {
	if len(s.Polygon) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: s.Polygon[0], Max: s.Polygon[0]}
	for _, p := range s.Polygon[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}

// SlotSummary counts slots by status plus open violations
type SlotSummary struct {
	Total      int `json:"total"`
	Empty      int `json:"empty"`
	Occupied   int `json:"occupied"`
	Violations int `json:"violations"`
}
