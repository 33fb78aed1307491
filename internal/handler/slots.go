package handler

import (
	"context"  // context for refresh calls
	"net/http" // http status codes
	"strings"  // strings trims query values

	"github.com/labstack/echo/v4" // echo web framework
	"github.com/rs/zerolog"        // request-scoped logger

	"github.com/iliyamo/restaurant-table-sessions/internal/model" // TimeSlot model
	"github.com/iliyamo/restaurant-table-sessions/internal/slot"  // resolver and grouping
)

// SlotView is the read side of the slot watcher.
type SlotView interface {
	Active() (*model.TimeSlot, bool)
	Snapshot() []model.TimeSlot
	Refresh(ctx context.Context) error
}

// SlotHandler serves the reservation slot list and the slot that is
// active right now.  It never talks to the database directly; the
// watcher owns fetching.
type SlotHandler struct {
	Slots SlotView
	Purge func(ctx context.Context) error // drops cached slot listings; may be nil
}

// NewSlotHandler panics when view is nil.  purge runs after every
// successful manual refresh so cached listings never outlive it.
func NewSlotHandler(view SlotView, purge func(ctx context.Context) error) *SlotHandler {
	if view == nil {
		panic("nil slot view passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: view, Purge: purge}
}

// List handles GET /v1/slots.
func (h *SlotHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Slots.Snapshot()})
}

// Grouped handles GET /v1/slots/grouped and buckets slots into morning,
// afternoon and evening.
func (h *SlotHandler) Grouped(c echo.Context) error {
	return c.JSON(http.StatusOK, slot.GroupByPeriod(h.Slots.Snapshot()))
}

// Active handles GET /v1/slots/active.  Without a query it returns the
// watcher's last resolution; with ?at=HH:MM it resolves the current list
// for that time of day.  "active" is null when nothing matches.
func (h *SlotHandler) Active(c echo.Context) error {
	at := strings.TrimSpace(c.QueryParam("at"))
	if at == "" {
		s, _ := h.Slots.Active()
		return c.JSON(http.StatusOK, echo.Map{"active": s})
	}
	if _, ok := slot.ParseClock(at); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at must be HH:MM or HH:MM:SS"})
	}
	s, _ := slot.ResolveAtClock(h.Slots.Snapshot(), at)
	return c.JSON(http.StatusOK, echo.Map{"active": s, "at": at})
}

// Refresh handles POST /v1/slots/refresh and refetches the slot list.
func (h *SlotHandler) Refresh(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Slots.Refresh(ctx); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("slot refresh failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to load slots"})
	}
	if h.Purge != nil {
		if err := h.Purge(ctx); err != nil {
			zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg("slot cache purge failed")
		}
	}
	active, _ := h.Slots.Active()
	return c.JSON(http.StatusOK, echo.Map{"items": h.Slots.Snapshot(), "active": active})
}
