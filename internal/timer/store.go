// Package timer persists one countdown per dining table so a running
// table session survives restarts of whatever is displaying it.
//
// Storage is the single source of truth: nothing is cached in memory.
// Two writers saving a timer for the same table race and the last write
// wins; there is no merge.
package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-sessions/internal/model"
)

// DefaultKeyPrefix namespaces timer records inside shared storage.
const DefaultKeyPrefix = "table_timer_"

var (
	// ErrNegativeDuration is returned by Save for remainingSeconds < 0.
	ErrNegativeDuration = errors.New("remaining seconds must not be negative")
	// ErrEmptyTableID is returned when no table identifier is given.
	ErrEmptyTableID = errors.New("table id is required")
	// ErrDurationTooLarge is returned by Save when the end time would not
	// fit in epoch milliseconds.
	ErrDurationTooLarge = errors.New("remaining seconds too large")
)

// KV is the storage capability the store needs. Get reports found=false
// for a missing key; Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store reads and writes table timers.
type Store struct {
	kv     KV
	clock  clockwork.Clock
	prefix string
	log    zerolog.Logger
}

// NewStore builds a Store over kv. An empty prefix falls back to
// DefaultKeyPrefix.
func NewStore(kv KV, clock clockwork.Clock, prefix string, logger zerolog.Logger) *Store {
	if kv == nil {
		panic("nil KV passed to timer.NewStore")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		kv:     kv,
		clock:  clock,
		prefix: prefix,
		log:    logger.With().Str("component", "timer_store").Logger(),
	}
}

// Prefix returns the key namespace used by the store.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) key(tableID string) string { return s.prefix + tableID }

// Save starts (or restarts) the countdown for tableID. Any existing
// timer for the table is overwritten. The stored record is returned.
func (s *Store) Save(ctx context.Context, tableID string, status model.TableStatus, remainingSeconds int64, initialMinutes int) (model.TableTimer, error) {
	if tableID == "" {
		return model.TableTimer{}, ErrEmptyTableID
	}
	if remainingSeconds < 0 {
		return model.TableTimer{}, ErrNegativeDuration
	}
	nowMs := s.clock.Now().UnixMilli()
	if remainingSeconds > (math.MaxInt64-nowMs)/1000 {
		return model.TableTimer{}, ErrDurationTooLarge
	}
	rec := model.TableTimer{
		EndTime:        nowMs + remainingSeconds*1000,
		Status:         status,
		InitialMinutes: initialMinutes,
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return model.TableTimer{}, fmt.Errorf("encode timer: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(tableID), string(body)); err != nil {
		return model.TableTimer{}, fmt.Errorf("save timer for table %s: %w", tableID, err)
	}
	return rec, nil
}

// Get returns the stored record for tableID regardless of status or
// expiry. Missing, unreadable and corrupted records all report false.
func (s *Store) Get(ctx context.Context, tableID string) (model.TableTimer, bool) {
	if tableID == "" {
		return model.TableTimer{}, false
	}
	raw, found, err := s.kv.Get(ctx, s.key(tableID))
	if err != nil {
		s.log.Error().Err(err).Str("table_id", tableID).Msg("read timer failed")
		return model.TableTimer{}, false
	}
	if !found {
		return model.TableTimer{}, false
	}
	var rec model.TableTimer
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.Error().Err(err).Str("table_id", tableID).Msg("corrupted timer record")
		return model.TableTimer{}, false
	}
	return rec, true
}

// Remaining returns the whole seconds left on tableID's timer. It reports
// false when there is no timer, the timer belongs to a different status,
// the record is corrupted, or the countdown has run out. The result is
// always > 0 when ok is true. Expired records are left in place.
func (s *Store) Remaining(ctx context.Context, tableID string, expected model.TableStatus) (int64, bool) {
	_, left, ok := s.Lookup(ctx, tableID, expected)
	return left, ok
}

// Lookup is Remaining that also returns the record the countdown was
// computed from, so callers never mix fields of two different saves.
func (s *Store) Lookup(ctx context.Context, tableID string, expected model.TableStatus) (model.TableTimer, int64, bool) {
	rec, ok := s.Get(ctx, tableID)
	if !ok {
		return model.TableTimer{}, 0, false
	}
	if rec.Status != expected {
		s.log.Debug().
			Str("table_id", tableID).
			Str("stored_status", string(rec.Status)).
			Str("expected_status", string(expected)).
			Msg("timer belongs to another status")
		return model.TableTimer{}, 0, false
	}
	left, ok := s.Left(rec)
	if !ok {
		s.log.Debug().Str("table_id", tableID).Int64("end_time", rec.EndTime).Msg("timer expired")
		return model.TableTimer{}, 0, false
	}
	return rec, left, true
}

// Left returns the whole seconds between now and rec's end time, or
// false when none remain. Records with a negative end time never count.
func (s *Store) Left(rec model.TableTimer) (int64, bool) {
	if rec.EndTime < 0 {
		return 0, false
	}
	left := floorDiv(rec.EndTime-s.clock.Now().UnixMilli(), 1000)
	if left <= 0 {
		return 0, false
	}
	return left, true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Clear removes tableID's timer. Clearing a table without a timer is a
// no-op.
func (s *Store) Clear(ctx context.Context, tableID string) error {
	if tableID == "" {
		return ErrEmptyTableID
	}
	if err := s.kv.Delete(ctx, s.key(tableID)); err != nil {
		return fmt.Errorf("clear timer for table %s: %w", tableID, err)
	}
	return nil
}

// ClearAll removes every timer under the store's prefix and returns how
// many records were deleted. Keys outside the prefix are untouched.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx, s.prefix)
	if err != nil {
		return 0, fmt.Errorf("list timers: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("clear timers: %w", err)
	}
	s.log.Info().Int("count", len(keys)).Msg("cleared all table timers")
	return len(keys), nil
}
