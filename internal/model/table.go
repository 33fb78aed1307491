package model

import "strings"

// TableStatus is the live state of a dining table. Timers are scoped to
// the status they were started under.
type TableStatus string

const (
	TableOpening  TableStatus = "Opening"
	TableClosing  TableStatus = "Closing"
	TableReserved TableStatus = "Reserved"
	TableLocked   TableStatus = "Locked"
)

var tableStatuses = []TableStatus{TableOpening, TableClosing, TableReserved, TableLocked}

// ParseTableStatus matches s against the known statuses, ignoring case
// and surrounding whitespace.
func ParseTableStatus(s string) (TableStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range tableStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// TableTimer is the persisted countdown for a single table. The JSON
// layout is what ends up in storage and may be inspected by hand, so
// the field names are fixed.
//
// Fields:
//  EndTime        – epoch milliseconds at which the countdown reaches zero.
//  Status         – table status the timer was created for.
//  InitialMinutes – duration originally requested, kept for display/reset.
type TableTimer struct {
	EndTime        int64       `json:"endTime"`
	Status         TableStatus `json:"status"`
	InitialMinutes int         `json:"initialMinutes"`
}
