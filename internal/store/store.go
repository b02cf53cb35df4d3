package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"time"

	_ "modernc.org/sqlite"

	"parking-monitor-go/internal/models"
)

var ErrNotFound = errors.New("violation not found")

const schema = `
	CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		car_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		w INTEGER NOT NULL,
		h INTEGER NOT NULL,
		frame_sequence INTEGER NOT NULL,
		capture_time INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		snapshot BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_violations_session ON violations(session_id);
	CREATE INDEX IF NOT EXISTS idx_violations_capture ON violations(capture_time);
`

// DB persists violation records across sessions
type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db}, nil
}

// HandleViolation stores a new record or refreshes the duration of a known one
func (db *DB) HandleViolation(ctx context.Context, r models.ViolationRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO violations (id, session_id, car_id, type, x, y, w, h, frame_sequence, capture_time, duration_seconds, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET duration_seconds = excluded.duration_seconds`,
		r.ID, r.SessionID, r.CarID, string(r.Type),
		r.BBox.Min.X, r.BBox.Min.Y, r.BBox.Dx(), r.BBox.Dy(),
		int64(r.FrameSequence), r.CaptureTime.UnixNano(), r.DurationSeconds, r.Snapshot,
	)
	if err != nil {
		return fmt.Errorf("store violation %s: %w", r.ID, err)
	}
	return nil
}

// UpdateDuration sets the duration of a stored record. Unknown ids are
// ignored.
func (db *DB) UpdateDuration(ctx context.Context, id string, seconds int) error {
	if _, err := db.ExecContext(ctx, "UPDATE violations SET duration_seconds = ? WHERE id = ?", seconds, id); err != nil {
		return fmt.Errorf("update duration of %s: %w", id, err)
	}
	return nil
}

// HistoryFilter narrows a History query. Zero values match everything.
type HistoryFilter struct {
	SessionID string
	Type      models.ViolationType
	Since     time.Time
	Limit     int
}

// History returns stored records, newest first, without snapshots
func (db *DB) History(ctx context.Context, f HistoryFilter) ([]models.ViolationRecord, error) {
	query := `SELECT id, session_id, car_id, type, x, y, w, h, frame_sequence, capture_time, duration_seconds
		FROM violations WHERE 1=1`
	var args []any
	if f.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if !f.Since.IsZero() {
		query += " AND capture_time >= ?"
		args = append(args, f.Since.UnixNano())
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	query += " ORDER BY capture_time DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ViolationRecord
	for rows.Next() {
		var (
			r          models.ViolationRecord
			vtype      string
			x, y, w, h int
			seq        int64
			captured   int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.CarID, &vtype, &x, &y, &w, &h, &seq, &captured, &r.DurationSeconds); err != nil {
			return nil, err
		}
		r.Type = models.ViolationType(vtype)
		r.BBox = image.Rect(x, y, x+w, y+h)
		r.FrameSequence = uint64(seq)
		r.CaptureTime = time.Unix(0, captured).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Snapshot returns the stored JPEG crop of a record
func (db *DB) Snapshot(ctx context.Context, id string) ([]byte, error) {
	var jpeg []byte
	err := db.QueryRowContext(ctx, "SELECT snapshot FROM violations WHERE id = ?", id).Scan(&jpeg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jpeg, nil
}

// Count returns the number of stored records
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM violations").Scan(&n)
	return n, err
}

// Purge deletes records captured before cutoff and returns how many went
func (db *DB) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM violations WHERE capture_time < ?", cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
