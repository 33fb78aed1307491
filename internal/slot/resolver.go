// Package slot works out which reservation slot is running at a given
// time of day and groups slots into the periods shown on the floor plan.
// Everything in resolver.go is a pure function of its arguments.
package slot

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-table-sessions/internal/model"
)

const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes past midnight.
// Seconds are validated but dropped.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	limits := []int{23, 59, 59}
	vals := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, false
		}
		vals[i] = n
	}
	return vals[0]*60 + vals[1], true
}

// minuteOfDay truncates t to hour and minute in its own location.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// bounds returns the start and end minute of s, or ok=false when either
// time is malformed.
func bounds(s model.TimeSlot) (start, end int, ok bool) {
	start, ok = ParseClock(s.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, ok = ParseClock(s.EndTime)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// contains reports whether minute now falls inside [start, end), where a
// start later than end wraps past midnight. start == end is empty.
func contains(start, end, now int) bool {
	if start <= end {
		return start <= now && now < end
	}
	return now >= start || now < end
}

// ResolveActiveSlot returns the first slot, in input order, whose window
// contains the hour and minute of now. Slots with malformed times never
// match.
func ResolveActiveSlot(slots []model.TimeSlot, now time.Time) (*model.TimeSlot, bool) {
	return resolveAt(slots, minuteOfDay(now))
}

// ResolveAtClock is ResolveActiveSlot for an "HH:MM[:SS]" string. It
// reports false when at cannot be parsed.
func ResolveAtClock(slots []model.TimeSlot, at string) (*model.TimeSlot, bool) {
	m, ok := ParseClock(at)
	if !ok {
		return nil, false
	}
	return resolveAt(slots, m)
}

func resolveAt(slots []model.TimeSlot, now int) (*model.TimeSlot, bool) {
	now = ((now % minutesPerDay) + minutesPerDay) % minutesPerDay
	for i := range slots {
		start, end, ok := bounds(slots[i])
		if !ok {
			continue
		}
		if contains(start, end, now) {
			s := slots[i]
			return &s, true
		}
	}
	return nil, false
}

// Invalid returns the slots whose start or end time cannot be parsed, so
// callers can report them.
func Invalid(slots []model.TimeSlot) []model.TimeSlot {
	var out []model.TimeSlot
	for _, s := range slots {
		if _, _, ok := bounds(s); !ok {
			out = append(out, s)
		}
	}
	return out
}

// Periods buckets slots by the part of the day they start in.
type Periods struct {
	Morning   []model.TimeSlot `json:"morning"`
	Afternoon []model.TimeSlot `json:"afternoon"`
	Evening   []model.TimeSlot `json:"evening"`
}

// GroupByPeriod places each slot by its start hour: [5,12) morning,
// [12,17) afternoon, anything else evening. Buckets are sorted by start
// time string. Slots with an unparseable start are left out.
func GroupByPeriod(slots []model.TimeSlot) Periods {
	p := Periods{
		Morning:   []model.TimeSlot{},
		Afternoon: []model.TimeSlot{},
		Evening:   []model.TimeSlot{},
	}
	for _, s := range slots {
		start, ok := ParseClock(s.StartTime)
		if !ok {
			continue
		}
		switch h := start / 60; {
		case h >= 5 && h < 12:
			p.Morning = append(p.Morning, s)
		case h >= 12 && h < 17:
			p.Afternoon = append(p.Afternoon, s)
		default:
			p.Evening = append(p.Evening, s)
		}
	}
	for _, bucket := range [][]model.TimeSlot{p.Morning, p.Afternoon, p.Evening} {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].StartTime < bucket[j].StartTime })
	}
	return p
}
