package store

import (
	"context"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-monitor-go/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "violations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id, session string, car int, vtype models.ViolationType, at time.Time) models.ViolationRecord {
	return models.ViolationRecord{
		ID:            id,
		SessionID:     session,
		CarID:         car,
		Type:          vtype,
		BBox:          image.Rect(10, 20, 60, 90),
		FrameSequence: 42,
		CaptureTime:   at.UTC(),
		Snapshot:      []byte{0xFF, 0xD8, 0xFF},
	}
}

func TestHandleViolationAndHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := record("a", "s1", 1, models.ViolationTypeOverstay, base)
	second := record("b", "s1", 2, models.ViolationTypeWrongSlot, base.Add(time.Second))
	other := record("c", "s2", 1, models.ViolationTypeOverstay, base.Add(2*time.Second))
	for _, r := range []models.ViolationRecord{first, second, other} {
		require.NoError(t, db.HandleViolation(ctx, r))
	}

	all, err := db.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	want := first
	want.Snapshot = nil
	if diff := cmp.Diff(want, all[2]); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}

	s1, err := db.History(ctx, HistoryFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	overstay, err := db.History(ctx, HistoryFilter{Type: models.ViolationTypeOverstay, Limit: 1})
	require.NoError(t, err)
	require.Len(t, overstay, 1)
	assert.Equal(t, "c", overstay[0].ID)

	recent, err := db.History(ctx, HistoryFilter{Since: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestHandleViolationUpdatesDuration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := record("a", "s1", 1, models.ViolationTypeOverstay, time.Now())
	require.NoError(t, db.HandleViolation(ctx, r))

	r.DurationSeconds = 12
	r.CarID = 99
	require.NoError(t, db.HandleViolation(ctx, r))

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := db.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 12, got[0].DurationSeconds)
	assert.Equal(t, 1, got[0].CarID, "only the duration changes after creation")
}

func TestUpdateDuration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.HandleViolation(ctx, record("a", "s1", 1, models.ViolationTypeOverstay, time.Now())))
	require.NoError(t, db.UpdateDuration(ctx, "a", 30))
	require.NoError(t, db.UpdateDuration(ctx, "missing", 5))

	got, err := db.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30, got[0].DurationSeconds)
}

func TestSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.HandleViolation(ctx, record("a", "s1", 1, models.ViolationTypeOverstay, time.Now())))

	jpeg, err := db.Snapshot(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, jpeg)

	_, err = db.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.HandleViolation(ctx, record("old", "s1", 1, models.ViolationTypeOverstay, now.Add(-48*time.Hour))))
	require.NoError(t, db.HandleViolation(ctx, record("new", "s1", 2, models.ViolationTypeOverstay, now)))

	n, err := db.Purge(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}
