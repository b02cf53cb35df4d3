package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-monitor-go/internal/models"
)

func countingMeasure(calls *int) MeasureFunc {
	return func(text string) (image.Point, int) {
		*calls++
		return image.Pt(len(text)*7, 12), 3
	}
}

func TestLabelText(t *testing.T) {
	car := models.TrackedObject{ID: 12, ClassID: 6}

	assert.Equal(t, "ID:12", LabelText(car, false, true))
	assert.Equal(t, "ID:12 [!]", LabelText(car, true, true))
	assert.Equal(t, "car", LabelText(car, true, false))
}

func TestLabelCacheMeasuresOnce(t *testing.T) {
	calls := 0
	c := NewLabelCache(100, countingMeasure(&calls))

	l := c.Get(1, "ID:1")
	assert.Equal(t, image.Pt(28, 12), l.Size)
	assert.Equal(t, 3, l.Baseline)

	c.Get(1, "ID:1")
	assert.Equal(t, 1, calls)

	l = c.Get(1, "ID:1 [!]")
	assert.Equal(t, 2, calls)
	assert.Equal(t, "ID:1 [!]", l.Text)
}

func TestLabelCacheCollect(t *testing.T) {
	calls := 0
	c := NewLabelCache(100, countingMeasure(&calls))
	for id := 0; id < 101; id++ {
		c.Get(id, "x")
	}

	active := map[int]struct{}{1: {}, 2: {}}
	removed := c.Collect(active)

	assert.Equal(t, 99, removed)
	assert.Equal(t, 2, c.Len())
}

func TestLabelCacheCollectKeepsSmallCaches(t *testing.T) {
	c := NewLabelCache(100, nil)
	for id := 0; id < 100; id++ {
		c.Get(id, "x")
	}
	assert.Equal(t, 0, c.Collect(map[int]struct{}{}), "at the limit nothing is collected")

	c.Get(100, "x")
	active := make(map[int]struct{})
	for id := 0; id < 60; id++ {
		active[id] = struct{}{}
	}
	assert.Equal(t, 0, c.Collect(active), "under twice the active count nothing is collected")
	assert.Equal(t, 101, c.Len())
}

func TestSlotCacheStale(t *testing.T) {
	var c SlotCache
	slots := []models.ParkingSlot{{ID: 1, Polygon: []image.Point{{0, 0}, {10, 0}, {10, 10}}}}
	statuses := map[int]models.SlotStatus{1: models.SlotStatusEmpty}

	assert.True(t, c.Stale(slots, statuses, 640, 480))
	assert.False(t, c.Stale(slots, statuses, 640, 480))

	statuses[1] = models.SlotStatusOccupied
	assert.True(t, c.Stale(slots, statuses, 640, 480), "status change")
	assert.False(t, c.Stale(slots, statuses, 640, 480))

	assert.True(t, c.Stale(slots, statuses, 1280, 720), "frame size change")

	moved := []models.ParkingSlot{{ID: 1, Polygon: []image.Point{{0, 0}, {12, 0}, {10, 10}}}}
	assert.True(t, c.Stale(moved, statuses, 1280, 720), "polygon change")

	c.Reset()
	assert.True(t, c.Stale(moved, statuses, 1280, 720))
}
