package repository // repository holds data access logic for domain entities

import (
	"context"      // context carries deadlines for queries
	"database/sql" // sql provides DB primitives
	"errors"       // errors allows sentinel comparisons

	"github.com/iliyamo/restaurant-table-sessions/internal/model" // TimeSlot model
)

// SlotRepo reads reservation slots from the reservation_slots table.
// Slots are configured elsewhere; this repository never writes them.
type SlotRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// TIME columns are formatted server side so callers always see HH:MM:SS.
const slotColumns = `id,
	TIME_FORMAT(start_time, '%H:%i:%s') AS start_time,
	TIME_FORMAT(end_time,   '%H:%i:%s') AS end_time,
	capacity`

// List returns every configured slot ordered by id.  The order matters:
// when slots overlap, the first one in this list is treated as active.
func (r *SlotRepo) List(ctx context.Context) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM reservation_slots ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TimeSlot{}
	for rows.Next() {
		var s model.TimeSlot
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Capacity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a single slot.  It returns ErrSlotNotFound when no
// row matches.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.TimeSlot, error) {
	var s model.TimeSlot
	err := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM reservation_slots WHERE id = ?`, id).
		Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}
