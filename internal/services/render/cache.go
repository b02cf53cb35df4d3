package render

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"image"
	"sync"

	"parking-monitor-go/internal/models"
)

// Label is a measured text label
type Label struct {
	Text     string
	Size     image.Point
	Baseline int
}

// MeasureFunc returns the rendered size and baseline of a text
type MeasureFunc func(text string) (image.Point, int)

// LabelCache keeps measured labels per track id
type LabelCache struct {
	mu      sync.Mutex
	max     int
	measure MeasureFunc
	entries map[int]Label
}

// NewLabelCache creates a label cache that collects garbage above max entries
func NewLabelCache(max int, measure MeasureFunc) *LabelCache {
	if max <= 0 {
		max = 100
	}
	return &LabelCache{max: max, measure: measure, entries: make(map[int]Label)}
}

// LabelText returns the overlay text of a tracked object
func LabelText(obj models.TrackedObject, violating, parkingEnabled bool) string {
	if !parkingEnabled {
		return models.ClassName(obj.ClassID)
	}
	text := fmt.Sprintf("ID:%d", obj.ID)
	if violating {
		text += " [!]"
	}
	return text
}

// Get returns the cached label for id, measuring it again when the text changed
func (c *LabelCache) Get(id int, text string) Label {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.entries[id]; ok && l.Text == text {
		return l
	}
	l := Label{Text: text}
	if c.measure != nil {
		l.Size, l.Baseline = c.measure(text)
	}
	c.entries[id] = l
	return l
}

// Collect drops entries for ids not in active once the cache holds more than
// max entries and more than twice the active count
func (c *LabelCache) Collect(active map[int]struct{}) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) <= c.max || len(c.entries) <= 2*len(active) {
		return 0
	}
	removed := 0
	for id := range c.entries {
		if _, ok := active[id]; !ok {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached labels
func (c *LabelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset empties the cache
func (c *LabelCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int]Label)
}

// SlotCache tracks whether the slot overlay must be redrawn
type SlotCache struct {
	mu    sync.Mutex
	key   uint64
	valid bool
}

// Stale reports whether the overlay for these slots and frame size differs
// from the cached one. A stale result marks the new key as cached.
func (c *SlotCache) Stale(slots []models.ParkingSlot, statuses map[int]models.SlotStatus, width, height int) bool {
	key := slotKey(slots, statuses, width, height)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.key == key {
		return false
	}
	c.key = key
	c.valid = true
	return true
}

// Reset forces the next call to Stale to report true
func (c *SlotCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

func slotKey(slots []models.ParkingSlot, statuses map[int]models.SlotStatus, width, height int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}

	put(width)
	put(height)
	for _, s := range slots {
		put(s.ID)
		h.Write([]byte(effectiveStatus(s, statuses)))
		put(len(s.Polygon))
		for _, p := range s.Polygon {
			put(p.X)
			put(p.Y)
		}
	}
	return h.Sum64()
}

func effectiveStatus(s models.ParkingSlot, statuses map[int]models.SlotStatus) models.SlotStatus {
	if st, ok := statuses[s.ID]; ok {
		return st
	}
	if s.Status == "" {
		return models.SlotStatusEmpty
	}
	return s.Status
}
