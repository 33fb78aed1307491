package timer

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-sessions/internal/model"
)

func newTestStore(t *testing.T) (*Store, *MemoryKV, *clockwork.FakeClock) {
	t.Helper()
	kv := NewMemoryKV()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 19, 30, 0, 0, time.UTC))
	return NewStore(kv, clock, "", zerolog.Nop()), kv, clock
}

func TestStore_RoundTripRealClock(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryKV(), clockwork.NewRealClock(), "", zerolog.Nop())

	if _, err := s.Save(ctx, "T1", model.TableOpening, 120, 2); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, ok := s.Remaining(ctx, "T1", model.TableOpening)
	if !ok || v < 118 || v > 120 {
		t.Fatalf("Remaining = %d,%v; want 118..120", v, ok)
	}
}

func TestStore_PersistedFormat(t *testing.T) {
	ctx := context.Background()
	s, kv, clock := newTestStore(t)

	if _, err := s.Save(ctx, "T9", model.TableReserved, 90, 15); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, found, _ := kv.Get(ctx, "table_timer_T9")
	if !found {
		t.Fatal("record not stored under table_timer_T9")
	}
	want := `{"endTime":` + strconv.FormatInt(clock.Now().UnixMilli()+90000, 10) + `,"status":"Reserved","initialMinutes":15}`
	if raw != want {
		t.Fatalf("stored %s\nwant   %s", raw, want)
	}
}

func TestStore_CountsDownAndExpires(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t)

	if _, err := s.Save(ctx, "T1", model.TableOpening, 120, 2); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); !ok || v != 120 {
		t.Fatalf("Remaining = %d,%v; want 120", v, ok)
	}

	clock.Advance(30*time.Second + 500*time.Millisecond)
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); !ok || v != 89 {
		t.Fatalf("Remaining after 30.5s = %d,%v; want 89", v, ok)
	}

	clock.Advance(89*time.Second + 200*time.Millisecond)
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatalf("sub-second remainder reported as %d", v)
	}

	clock.Advance(time.Hour)
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); ok || v != 0 {
		t.Fatalf("expired timer reported as %d,%v", v, ok)
	}
	if _, ok := s.Get(ctx, "T1"); !ok {
		t.Fatal("Remaining must not delete expired records")
	}
}

func TestStore_StatusMismatchIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if _, err := s.Save(ctx, "T1", model.TableOpening, 600, 10); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if v, ok := s.Remaining(ctx, "T1", model.TableClosing); ok {
		t.Fatalf("mismatched status returned %d", v)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, _ = s.Save(ctx, "T1", model.TableOpening, 600, 10)
	_, _ = s.Save(ctx, "T1", model.TableLocked, 60, 1)

	if _, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatal("old timer survived overwrite")
	}
	if v, ok := s.Remaining(ctx, "T1", model.TableLocked); !ok || v != 60 {
		t.Fatalf("Remaining = %d,%v; want 60", v, ok)
	}
}

func TestStore_ZeroSecondsIsImmediatelyAbsent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if _, err := s.Save(ctx, "T1", model.TableOpening, 0, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatal("zero-length timer reported as running")
	}
}

func TestStore_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	if _, err := s.Save(ctx, "T1", model.TableOpening, -1, 0); !errors.Is(err, ErrNegativeDuration) {
		t.Fatalf("negative duration err = %v", err)
	}
	if _, err := s.Save(ctx, "", model.TableOpening, 10, 0); !errors.Is(err, ErrEmptyTableID) {
		t.Fatalf("empty table err = %v", err)
	}
}

func TestStore_CorruptedRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)

	_ = kv.Set(ctx, "table_timer_T1", "{not json")
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatalf("corrupted record returned %d", v)
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, _ = s.Save(ctx, "T1", model.TableOpening, 120, 2)
	if err := s.Clear(ctx, "T1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatal("timer present after Clear")
	}
	if err := s.Clear(ctx, "T-missing"); err != nil {
		t.Fatalf("Clear of missing key: %v", err)
	}
}

func TestStore_ClearAllLeavesOtherKeys(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)

	for _, id := range []string{"T1", "T2", "T3"} {
		if _, err := s.Save(ctx, id, model.TableOpening, 300, 5); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	_ = kv.Set(ctx, "auth_token", "abc")
	_ = kv.Set(ctx, "table_settings", "{}")

	n, err := s.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("ClearAll removed %d records, want 3", n)
	}
	for _, id := range []string{"T1", "T2", "T3"} {
		if _, ok := s.Remaining(ctx, id, model.TableOpening); ok {
			t.Fatalf("timer %s survived ClearAll", id)
		}
	}
	for _, k := range []string{"auth_token", "table_settings"} {
		if _, found, _ := kv.Get(ctx, k); !found {
			t.Fatalf("unrelated key %s removed", k)
		}
	}
}

func TestStore_CustomPrefix(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewStore(kv, clockwork.NewFakeClock(), "pos:timer:", zerolog.Nop())

	_, _ = s.Save(ctx, "12", model.TableReserved, 10, 1)
	if _, found, _ := kv.Get(ctx, "pos:timer:12"); !found {
		t.Fatal("custom prefix not applied")
	}
}

func TestStore_RejectsDurationPastInt64(t *testing.T) {
	ctx := context.Background()
	s, kv, clock := newTestStore(t)

	limit := (math.MaxInt64 - clock.Now().UnixMilli()) / 1000
	for _, secs := range []int64{limit + 1, 9223372036854775, math.MaxInt64} {
		if _, err := s.Save(ctx, "T1", model.TableOpening, secs, 0); !errors.Is(err, ErrDurationTooLarge) {
			t.Fatalf("Save(%d) err = %v, want ErrDurationTooLarge", secs, err)
		}
	}
	if _, found, _ := kv.Get(ctx, "table_timer_T1"); found {
		t.Fatal("oversized timer was persisted")
	}

	rec, err := s.Save(ctx, "T1", model.TableOpening, limit, 0)
	if err != nil {
		t.Fatalf("Save(limit): %v", err)
	}
	if rec.EndTime <= clock.Now().UnixMilli() {
		t.Fatalf("end time wrapped: %d", rec.EndTime)
	}
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); !ok || v != limit {
		t.Fatalf("Remaining = %d,%v; want %d", v, ok, limit)
	}
}

func TestStore_NegativeEndTimeIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t)

	_ = kv.Set(ctx, "table_timer_T1", `{"endTime":-9223370256510776616,"status":"Opening","initialMinutes":0}`)
	if v, ok := s.Remaining(ctx, "T1", model.TableOpening); ok {
		t.Fatalf("negative end time reported as %d seconds left", v)
	}
}

func TestStore_LookupReturnsMatchingRecord(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestStore(t)

	saved, _ := s.Save(ctx, "T1", model.TableReserved, 300, 5)
	clock.Advance(100 * time.Second)

	rec, left, ok := s.Lookup(ctx, "T1", model.TableReserved)
	if !ok || left != 200 {
		t.Fatalf("Lookup = %d,%v; want 200", left, ok)
	}
	if rec != saved {
		t.Fatalf("record = %+v, want %+v", rec, saved)
	}
	if _, _, ok := s.Lookup(ctx, "T1", model.TableOpening); ok {
		t.Fatal("Lookup matched another status")
	}
}
