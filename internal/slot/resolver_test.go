package slot

import (
	"testing"
	"time"

	"github.com/iliyamo/restaurant-table-sessions/internal/model"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"11:00:00", 660, true},
		{"23:59:59", 1439, true},
		{" 07:30 ", 450, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"7:30", 0, false},
		{"noon", 0, false},
		{"", 0, false},
		{"12:00:00:00", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseClock(%q) = %d,%v; want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveActiveSlot_NormalWindowIsHalfOpen(t *testing.T) {
	slots := []model.TimeSlot{{ID: 1, StartTime: "11:00:00", EndTime: "14:00:00"}}
	cases := map[string]bool{
		"10:59": false,
		"11:00": true,
		"13:59": true,
		"14:00": false,
	}
	for now, want := range cases {
		_, ok := ResolveActiveSlot(slots, at(now))
		if ok != want {
			t.Errorf("now=%s: active=%v, want %v", now, ok, want)
		}
	}
}

func TestResolveActiveSlot_Wraparound(t *testing.T) {
	slots := []model.TimeSlot{{ID: 7, StartTime: "22:00:00", EndTime: "02:00:00"}}
	cases := map[string]bool{
		"23:00": true,
		"01:00": true,
		"22:00": true,
		"02:00": false,
		"12:00": false,
	}
	for now, want := range cases {
		_, ok := ResolveActiveSlot(slots, at(now))
		if ok != want {
			t.Errorf("now=%s: active=%v, want %v", now, ok, want)
		}
	}
}

func TestResolveActiveSlot_IgnoresSeconds(t *testing.T) {
	slots := []model.TimeSlot{{ID: 1, StartTime: "11:00:45", EndTime: "12:00:00"}}
	now := time.Date(2026, 1, 1, 11, 0, 5, 0, time.UTC)
	if _, ok := ResolveActiveSlot(slots, now); !ok {
		t.Fatal("expected 11:00:05 to fall inside a slot starting 11:00:45")
	}
}

func TestResolveActiveSlot_ZeroLengthNeverActive(t *testing.T) {
	slots := []model.TimeSlot{{ID: 1, StartTime: "12:00:00", EndTime: "12:00:00"}}
	for _, now := range []string{"11:59", "12:00", "12:01"} {
		if _, ok := ResolveActiveSlot(slots, at(now)); ok {
			t.Errorf("zero-length slot active at %s", now)
		}
	}
}

func TestResolveActiveSlot_FirstMatchWins(t *testing.T) {
	slots := []model.TimeSlot{
		{ID: 1, StartTime: "18:00:00", EndTime: "22:00:00"},
		{ID: 2, StartTime: "19:00:00", EndTime: "23:00:00"},
	}
	got, ok := ResolveActiveSlot(slots, at("20:00"))
	if !ok || got.ID != 1 {
		t.Fatalf("got %+v,%v; want slot 1", got, ok)
	}
}

func TestResolveActiveSlot_SkipsMalformed(t *testing.T) {
	slots := []model.TimeSlot{
		{ID: 1, StartTime: "bad", EndTime: "23:00:00"},
		{ID: 2, StartTime: "19:00:00", EndTime: ""},
		{ID: 3, StartTime: "19:00:00", EndTime: "21:00:00"},
	}
	got, ok := ResolveActiveSlot(slots, at("20:00"))
	if !ok || got.ID != 3 {
		t.Fatalf("got %+v,%v; want slot 3", got, ok)
	}
	if inv := Invalid(slots); len(inv) != 2 {
		t.Fatalf("Invalid returned %d slots, want 2", len(inv))
	}
}

func TestResolveActiveSlot_Empty(t *testing.T) {
	if got, ok := ResolveActiveSlot(nil, at("12:00")); ok || got != nil {
		t.Fatalf("got %+v,%v; want nil,false", got, ok)
	}
}

func TestResolveActiveSlot_Scenarios(t *testing.T) {
	slots := []model.TimeSlot{
		{ID: 'A', StartTime: "11:00:00", EndTime: "14:00:00"},
		{ID: 'B', StartTime: "21:00:00", EndTime: "01:00:00"},
	}
	got, ok := ResolveActiveSlot(slots, at("23:30"))
	if !ok || got.ID != 'B' {
		t.Fatalf("23:30: got %+v,%v; want B", got, ok)
	}
	if got, ok := ResolveActiveSlot(slots, at("10:00")); ok {
		t.Fatalf("10:00: got %+v; want none", got)
	}
}

func TestResolveAtClock(t *testing.T) {
	slots := []model.TimeSlot{{ID: 1, StartTime: "11:00:00", EndTime: "14:00:00"}}
	if _, ok := ResolveAtClock(slots, "12:15"); !ok {
		t.Error("expected 12:15 to be active")
	}
	if _, ok := ResolveAtClock(slots, "nope"); ok {
		t.Error("malformed clock resolved a slot")
	}
}

func TestGroupByPeriod(t *testing.T) {
	slots := []model.TimeSlot{
		{ID: 1, StartTime: "16:59:00", EndTime: "18:00:00"},
		{ID: 2, StartTime: "05:00:00", EndTime: "06:00:00"},
		{ID: 3, StartTime: "17:00:00", EndTime: "18:00:00"},
		{ID: 4, StartTime: "11:59:00", EndTime: "12:30:00"},
		{ID: 5, StartTime: "12:00:00", EndTime: "13:00:00"},
		{ID: 6, StartTime: "04:59:00", EndTime: "05:30:00"},
		{ID: 7, StartTime: "garbage", EndTime: "05:30:00"},
	}
	p := GroupByPeriod(slots)

	ids := func(ss []model.TimeSlot) []uint64 {
		out := make([]uint64, 0, len(ss))
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}
	check := func(name string, got, want []uint64) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("%s = %v, want %v", name, got, want)
			}
		}
	}
	check("morning", ids(p.Morning), []uint64{2, 4})
	check("afternoon", ids(p.Afternoon), []uint64{5, 1})
	check("evening", ids(p.Evening), []uint64{6, 3})
}
