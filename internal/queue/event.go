// Package queue defines message payloads exchanged over the message broker.
package queue

// TableTimersQueue is the durable queue table timer events are published to.
const TableTimersQueue = "table.timers"

// Timer event actions.
const (
	ActionSaved      = "timer.saved"
	ActionCleared    = "timer.cleared"
	ActionClearedAll = "timer.cleared_all"
)

// TableTimerEvent is published whenever a table countdown is started,
// reset or removed.  The notification channel relays it to other floor
// devices so they can refetch the table's timer.  TableID, Status,
// EndTime and InitialMinutes are empty for ActionClearedAll.
type TableTimerEvent struct {
	EventID        string `json:"event_id"`
	Action         string `json:"action"`
	TableID        string `json:"table_id,omitempty"`
	Status         string `json:"status,omitempty"`
	EndTime        int64  `json:"end_time,omitempty"`        // epoch milliseconds
	InitialMinutes int    `json:"initial_minutes,omitempty"`
	Cleared        int    `json:"cleared,omitempty"` // records removed by ActionClearedAll
	ActorID        string `json:"actor_id,omitempty"`
	OccurredAt     string `json:"occurred_at"` // RFC3339, UTC
}
