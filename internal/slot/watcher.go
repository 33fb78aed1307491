package slot

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-sessions/internal/model"
	"github.com/iliyamo/restaurant-table-sessions/internal/schedule"
)

// Source supplies the configured reservation slots.
type Source interface {
	List(ctx context.Context) ([]model.TimeSlot, error)
}

// WatcherConfig controls how often the watcher re-resolves the active
// slot and how often it refetches the slot list.
type WatcherConfig struct {
	TickInterval    time.Duration
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	// Location is the zone slot times are written in. Clock readings are
	// converted to it before resolving. Nil means UTC.
	Location *time.Location
}

// Watcher keeps the "active now" slot current. It fetches the slot list
// from a Source and resolves it against the clock on a fixed tick.
type Watcher struct {
	source Source
	clock  clockwork.Clock
	cfg    WatcherConfig
	log    zerolog.Logger

	mu     sync.RWMutex
	slots  []model.TimeSlot
	active *model.TimeSlot
}

// NewWatcher returns a Watcher with defaults applied to zero intervals:
// 60s tick, 5m refresh, 5s fetch timeout, UTC.
func NewWatcher(source Source, clock clockwork.Clock, cfg WatcherConfig, logger zerolog.Logger) *Watcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return &Watcher{
		source: source,
		clock:  clock,
		cfg:    cfg,
		log:    logger.With().Str("component", "slot_watcher").Logger(),
	}
}

// Start fetches the slot list, resolves once, and then keeps both fresh
// in the background. The returned function stops all background work;
// Start's ctx only bounds the fetch calls.
func (w *Watcher) Start(ctx context.Context) (stop func()) {
	if err := w.Refresh(ctx); err != nil {
		w.log.Warn().Err(err).Msg("initial slot fetch failed")
	}

	stopTick := schedule.Every(w.clock, w.cfg.TickInterval, func(now time.Time) {
		w.resolve(now)
	})
	stopRefresh := schedule.Every(w.clock, w.cfg.RefreshInterval, func(time.Time) {
		if err := w.Refresh(ctx); err != nil {
			w.log.Warn().Err(err).Msg("slot refresh failed; keeping previous list")
		}
	})
	return func() {
		stopRefresh()
		stopTick()
	}
}

// Refresh refetches the slot list and re-resolves immediately. On error
// the previous list is kept.
func (w *Watcher) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()

	slots, err := w.source.List(ctx)
	if err != nil {
		return err
	}
	for _, bad := range Invalid(slots) {
		w.log.Warn().
			Uint64("slot_id", bad.ID).
			Str("start_time", bad.StartTime).
			Str("end_time", bad.EndTime).
			Msg("slot has malformed time; it will never be active")
	}

	w.mu.Lock()
	w.slots = slots
	w.mu.Unlock()

	w.resolve(w.clock.Now())
	return nil
}

func (w *Watcher) resolve(now time.Time) {
	now = now.In(w.cfg.Location)
	w.mu.Lock()
	defer w.mu.Unlock()

	next, _ := ResolveActiveSlot(w.slots, now)
	if changed(w.active, next) {
		ev := w.log.Info().Time("at", now)
		if next != nil {
			ev = ev.Uint64("slot_id", next.ID)
		}
		ev.Msg("active slot changed")
	}
	w.active = next
}

func changed(prev, next *model.TimeSlot) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	return prev.ID != next.ID
}

// Active returns the slot found on the last tick.
func (w *Watcher) Active() (*model.TimeSlot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == nil {
		return nil, false
	}
	s := *w.active
	return &s, true
}

// Snapshot returns a copy of the current slot list.
func (w *Watcher) Snapshot() []model.TimeSlot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.TimeSlot, len(w.slots))
	copy(out, w.slots)
	return out
}
