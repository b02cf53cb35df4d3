package violations

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parking-monitor-go/internal/config"
	"parking-monitor-go/internal/models"
)

// Snapshotter renders the evidence images of a violation
type Snapshotter interface {
	Crop(frame *models.Frame, box image.Rectangle) ([]byte, error)
	Visualize(frame *models.Frame, box image.Rectangle) ([]byte, error)
}

// EventSink receives every newly created record
type EventSink interface {
	HandleViolation(ctx context.Context, record models.ViolationRecord) error
}

// DurationSink is implemented by sinks that keep the duration of stored
// records current. It is called on every evaluated check for records whose
// whole-second duration changed.
type DurationSink interface {
	UpdateDuration(ctx context.Context, id string, seconds int) error
}

type durationUpdate struct {
	id      string
	seconds int
}

// Rules holds the violation thresholds
type Rules struct {
	OverstayFrames  int
	WrongSlotFrames int
	CheckInterval   time.Duration
}

// RulesFromConfig builds Rules from the application config
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		OverstayFrames:  cfg.OverstayFrames,
		WrongSlotFrames: cfg.WrongSlotFrames,
		CheckInterval:   cfg.ViolationCheckInterval,
	}
}

// Engine turns tracked state into deduplicated violation records. A (car,
// type) pair produces at most one record until Clear or Reset.
type Engine struct {
	rules  Rules
	snap   Snapshotter
	sinks  []EventSink
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	sessionID string
	lastCheck time.Time
	records   map[models.ViolationKey]*models.ViolationRecord
	order     []*models.ViolationRecord
}

// NewEngine creates a violation engine. snap may be nil, in which case
// records carry no images.
func NewEngine(rules Rules, snap Snapshotter, logger zerolog.Logger, sinks ...EventSink) *Engine {
	return &Engine{
		rules:   rules,
		snap:    snap,
		sinks:   sinks,
		logger:  logger,
		now:     time.Now,
		records: make(map[models.ViolationKey]*models.ViolationRecord),
	}
}

// SetClock replaces the wall clock used for throttling and durations
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Rules returns the configured thresholds
func (e *Engine) Rules() Rules {
	return e.rules
}

// Check evaluates both rules against state. It runs at most once per check
// interval and returns only records created by this call.
func (e *Engine) Check(state models.AppState, frame *models.Frame) []models.ViolationRecord {
	e.mu.Lock()

	now := e.now()
	if !e.lastCheck.IsZero() && now.Sub(e.lastCheck) < e.rules.CheckInterval {
		e.mu.Unlock()
		return nil
	}
	e.lastCheck = now

	var updates []durationUpdate
	for _, r := range e.order {
		if d := durationAt(r, now); d != r.DurationSeconds {
			r.DurationSeconds = d
			updates = append(updates, durationUpdate{id: r.ID, seconds: d})
		}
	}

	if frame.Empty() {
		e.mu.Unlock()
		e.dispatchDurations(updates)
		return nil
	}

	var created []models.ViolationRecord
	for _, car := range state.Cars {
		if car.FramesStill > e.rules.OverstayFrames {
			if r, ok := e.create(car, models.ViolationTypeOverstay, state.FrameSequence, frame, now); ok {
				created = append(created, r)
			}
		}
		if state.IsViolating(car.ID) {
			if r, ok := e.create(car, models.ViolationTypeWrongSlot, state.FrameSequence, frame, now); ok {
				created = append(created, r)
			}
		}
	}
	e.mu.Unlock()

	e.dispatchDurations(updates)
	for _, r := range created {
		e.logger.Info().
			Str("violation_id", r.ID).
			Int("car_id", r.CarID).
			Str("type", r.Type.String()).
			Uint64("frame_seq", r.FrameSequence).
			Msg("Violation recorded")
		e.dispatch(r)
	}
	return created
}

// create must be called with e.mu held
func (e *Engine) create(car models.TrackedObject, typ models.ViolationType, seq uint64, frame *models.Frame, now time.Time) (models.ViolationRecord, bool) {
	key := models.ViolationKey{CarID: car.ID, Type: typ}
	if _, exists := e.records[key]; exists {
		return models.ViolationRecord{}, false
	}

	crop := car.BBox.Intersect(image.Rect(0, 0, frame.Width, frame.Height))
	if crop.Empty() {
		e.logger.Debug().Int("car_id", car.ID).Str("type", typ.String()).Msg("Car box outside frame, retrying next cycle")
		return models.ViolationRecord{}, false
	}

	record := &models.ViolationRecord{
		ID:            uuid.NewString(),
		SessionID:     e.sessionID,
		CarID:         car.ID,
		Type:          typ,
		BBox:          car.BBox,
		FrameSequence: seq,
		CaptureTime:   now,
	}

	if e.snap != nil {
		snapshot, err := e.snap.Crop(frame, crop)
		if err != nil {
			e.logger.Warn().Err(err).Int("car_id", car.ID).Msg("Failed to crop violation snapshot, retrying next cycle")
			return models.ViolationRecord{}, false
		}
		record.Snapshot = snapshot

		vis, err := e.snap.Visualize(frame, crop)
		if err != nil {
			e.logger.Warn().Err(err).Int("car_id", car.ID).Msg("Failed to render violation visualization")
		} else {
			record.Visualization = vis
		}
	}

	e.records[key] = record
	e.order = append(e.order, record)
	return *record, true
}

func (e *Engine) dispatch(r models.ViolationRecord) {
	for _, sink := range e.sinks {
		if sink == nil {
			continue
		}
		if err := sink.HandleViolation(context.Background(), r); err != nil {
			e.logger.Error().Err(err).Str("violation_id", r.ID).Msg("Violation sink failed")
		}
	}
}

func (e *Engine) dispatchDurations(updates []durationUpdate) {
	if len(updates) == 0 {
		return
	}
	for _, sink := range e.sinks {
		ds, ok := sink.(DurationSink)
		if !ok {
			continue
		}
		for _, u := range updates {
			if err := ds.UpdateDuration(context.Background(), u.id, u.seconds); err != nil {
				e.logger.Warn().Err(err).Str("violation_id", u.id).Msg("Failed to update violation duration")
			}
		}
	}
}

func durationAt(r *models.ViolationRecord, now time.Time) int {
	d := int(now.Sub(r.CaptureTime).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// Records returns a copy of every record, newest first. Durations are
// computed at the time of the call.
func (e *Engine) Records() []models.ViolationRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	out := make([]models.ViolationRecord, 0, len(e.order))
	for i := len(e.order) - 1; i >= 0; i-- {
		r := *e.order[i]
		r.DurationSeconds = durationAt(&r, now)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CaptureTime.After(out[j].CaptureTime) })
	return out
}

// Get returns the record with the given id
func (e *Engine) Get(id string) (models.ViolationRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, r := range e.order {
		if r.ID == id {
			out := *r
			out.DurationSeconds = durationAt(&out, e.now())
			return out, true
		}
	}
	return models.ViolationRecord{}, false
}

// Count returns the number of records
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.order)
}

// Clear drops every record. It is the only way a recorded pair can fire again
// within a session.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.records = make(map[models.ViolationKey]*models.ViolationRecord)
	e.order = nil
	e.logger.Info().Msg("Violations cleared")
}

// Reset clears records and throttling state for a new session
func (e *Engine) Reset(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sessionID = sessionID
	e.lastCheck = time.Time{}
	e.records = make(map[models.ViolationKey]*models.ViolationRecord)
	e.order = nil
}
