package slots

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"parking-monitor-go/internal/models"
)

var (
	ErrInvalidPolygon = errors.New("slot polygon needs at least 3 points")
	ErrSlotNotFound   = errors.New("slot not found")
)

// Manager owns the parking slot polygons and their per-cycle status
type Manager struct {
	mu          sync.RWMutex
	slots       []models.ParkingSlot
	nextID      int
	version     uint64
	name        string
	description string
}

// NewManager creates an empty slot manager
func NewManager() *Manager {
	return &Manager{nextID: 1}
}

// SetSlots replaces every slot. Ids are kept; statuses start EMPTY.
func (m *Manager) SetSlots(slots []models.ParkingSlot) error {
	next := make([]models.ParkingSlot, 0, len(slots))
	seen := make(map[int]bool, len(slots))
	maxID := 0
	for _, s := range slots {
		if len(s.Polygon) < 3 {
			return fmt.Errorf("slot %d: %w", s.ID, ErrInvalidPolygon)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate slot id %d", s.ID)
		}
		seen[s.ID] = true
		c := s.Clone()
		c.Status = models.SlotStatusEmpty
		c.OccupancyPercent = 0
		next = append(next, c)
		if s.ID > maxID {
			maxID = s.ID
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = next
	m.nextID = maxID + 1
	m.version++
	return nil
}

// AddSlot appends a polygon and returns the created slot
func (m *Manager) AddSlot(polygon []image.Point) (models.ParkingSlot, error) {
	if len(polygon) < 3 {
		return models.ParkingSlot{}, ErrInvalidPolygon
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot := models.ParkingSlot{
		ID:      m.nextID,
		Polygon: append([]image.Point(nil), polygon...),
		Status:  models.SlotStatusEmpty,
	}
	m.nextID++
	m.slots = append(m.slots, slot)
	m.version++
	return slot.Clone(), nil
}

// DeleteSlot removes the slot with the given id
func (m *Manager) DeleteSlot(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.slots {
		if s.ID == id {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			m.version++
			return nil
		}
	}
	return fmt.Errorf("slot %d: %w", id, ErrSlotNotFound)
}

// Clear removes every slot and the template metadata
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots = nil
	m.nextID = 1
	m.name = ""
	m.description = ""
	m.version++
}

// Slots returns a copy of the current slots
func (m *Manager) Slots() []models.ParkingSlot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ParkingSlot, len(m.slots))
	for i, s := range m.slots {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of slots
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// Version changes whenever the polygon set changes
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Name returns the loaded template name
func (m *Manager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Description returns the loaded template description
func (m *Manager) Description() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.description
}

// Update recomputes slot status and occupancy from tracked objects. A slot is
// OCCUPIED when any object's box center lies inside or on its polygon.
// Occupancy is the share of the polygon's bounding box covered by object
// boxes, capped at 100.
func (m *Manager) Update(objects []models.TrackedObject) (map[int]models.SlotStatus, map[int]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make(map[int]models.SlotStatus, len(m.slots))
	occupancy := make(map[int]float64, len(m.slots))

	for i := range m.slots {
		slot := &m.slots[i]
		bounds := slot.Bounds()
		boundsArea := bounds.Dx() * bounds.Dy()

		occupied := false
		covered := 0
		for _, obj := range objects {
			if Contains(slot.Polygon, obj.Center()) {
				occupied = true
			}
			inter := obj.BBox.Intersect(bounds)
			if !inter.Empty() {
				covered += inter.Dx() * inter.Dy()
			}
		}

		pct := 0.0
		if boundsArea > 0 {
			pct = 100 * float64(covered) / float64(boundsArea)
			if pct > 100 {
				pct = 100
			}
		}

		slot.Status = models.SlotStatusEmpty
		if occupied {
			slot.Status = models.SlotStatusOccupied
		}
		slot.OccupancyPercent = pct

		statuses[slot.ID] = slot.Status
		occupancy[slot.ID] = pct
	}

	return statuses, occupancy
}

// WrongSlot returns the ids of objects that have been still for more than
// stillFrames and whose center is outside every slot. With no slots defined
// nothing is reported.
func (m *Manager) WrongSlot(objects []models.TrackedObject, stillFrames int) map[int]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[int]struct{})
	if len(m.slots) == 0 {
		return ids
	}

	for _, obj := range objects {
		if obj.FramesStill <= stillFrames {
			continue
		}
		center := obj.Center()
		inAny := false
		for _, slot := range m.slots {
			if Contains(slot.Polygon, center) {
				inAny = true
				break
			}
		}
		if !inAny {
			ids[obj.ID] = struct{}{}
		}
	}
	return ids
}

// Summary counts slots by their last computed status
func (m *Manager) Summary() models.SlotSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := models.SlotSummary{Total: len(m.slots)}
	for _, s := range m.slots {
		if s.Status == models.SlotStatusOccupied {
			sum.Occupied++
		} else {
			sum.Empty++
		}
	}
	return sum
}

// ResetStatus marks every slot EMPTY without touching polygons
func (m *Manager) ResetStatus() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		m.slots[i].Status = models.SlotStatusEmpty
		m.slots[i].OccupancyPercent = 0
	}
}
