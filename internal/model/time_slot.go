package model

// TimeSlot is a reservation window configured for the restaurant floor.
// Start and end are wall-clock times of day as returned by the slots
// table ("HH:MM:SS"); only hour and minute take part in comparisons.
// A slot whose start is later than its end wraps past midnight
// (e.g. 22:00:00 – 02:00:00).
//
// Fields:
//  ID        – primary key identifier.
//  StartTime – time of day the slot opens.
//  EndTime   – time of day the slot closes (exclusive).
//  Capacity  – maximum concurrent reservations; informational only.
type TimeSlot struct {
	ID        uint64 `json:"id"`         // reservation_slots.id
	StartTime string `json:"start_time"` // reservation_slots.start_time
	EndTime   string `json:"end_time"`   // reservation_slots.end_time
	Capacity  uint32 `json:"capacity"`   // reservation_slots.capacity
}
