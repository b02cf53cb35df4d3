package models

// AppState is the result of one inference cycle. It is copied, never shared.
type AppState struct {
	Cars            []TrackedObject    `json:"cars"`
	ViolatingCarIDs map[int]struct{}   `json:"-"`
	SlotStatuses    map[int]SlotStatus `json:"slot_statuses"`
	SlotOccupancy   map[int]float64    `json:"slot_occupancy"`
	FrameSequence   uint64             `json:"frame_sequence"`
}

// NewAppState returns an empty state with initialised maps
func NewAppState() AppState {
	return AppState{
		ViolatingCarIDs: make(map[int]struct{}),
		SlotStatuses:    make(map[int]SlotStatus),
		SlotOccupancy:   make(map[int]float64),
	}
}

// Clone returns a deep copy of the state
func (s AppState) Clone() AppState {
	c := AppState{
		Cars:            append([]TrackedObject(nil), s.Cars...),
		ViolatingCarIDs: make(map[int]struct{}, len(s.ViolatingCarIDs)),
		SlotStatuses:    make(map[int]SlotStatus, len(s.SlotStatuses)),
		SlotOccupancy:   make(map[int]float64, len(s.SlotOccupancy)),
		FrameSequence:   s.FrameSequence,
	}
	for id := range s.ViolatingCarIDs {
		c.ViolatingCarIDs[id] = struct{}{}
	}
	for id, st := range s.SlotStatuses {
		c.SlotStatuses[id] = st
	}
	for id, occ := range s.SlotOccupancy {
		c.SlotOccupancy[id] = occ
	}
	return c
}

// IsViolating reports whether the car id is in the wrong-slot set
func (s AppState) IsViolating(id int) bool {
	_, ok := s.ViolatingCarIDs[id]
	return ok
}

// ViolatingIDs returns the wrong-slot ids as a slice for JSON output
func (s AppState) ViolatingIDs() []int {
	ids := make([]int, 0, len(s.ViolatingCarIDs))
	for id := range s.ViolatingCarIDs {
		ids = append(ids, id)
	}
	return ids
}
