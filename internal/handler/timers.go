package handler

import (
	"context"  // context for publish calls
	"errors"   // errors.Is against store sentinels
	"net/http" // http status codes
	"time"     // event timestamps

	"github.com/google/uuid"         // event identifiers
	"github.com/jonboulle/clockwork" // injectable clock
	"github.com/labstack/echo/v4"    // echo web framework
	"github.com/rs/zerolog"          // request-scoped logger

	"github.com/iliyamo/restaurant-table-sessions/internal/model"   // table statuses
	"github.com/iliyamo/restaurant-table-sessions/internal/queue"   // timer events
	"github.com/iliyamo/restaurant-table-sessions/internal/service" // no-op publisher
	"github.com/iliyamo/restaurant-table-sessions/internal/timer"   // timer store
)

// TimerEventPublisher is implemented by service.TimerPublisher.
type TimerEventPublisher interface {
	PublishTimerEvent(ctx context.Context, ev queue.TableTimerEvent) error
}

// TimerHandler exposes the table timer store to floor devices.  Every
// change is announced on the message broker so other devices can refetch.
type TimerHandler struct {
	Store     *timer.Store
	Publisher TimerEventPublisher
	Clock     clockwork.Clock
}

// NewTimerHandler panics on a nil store.  A nil publisher or clock falls
// back to service.NoopPublisher and the real clock.
func NewTimerHandler(store *timer.Store, pub TimerEventPublisher, clock clockwork.Clock) *TimerHandler {
	if store == nil {
		panic("nil timer store passed to NewTimerHandler")
	}
	if pub == nil {
		pub = service.NoopPublisher{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimerHandler{Store: store, Publisher: pub, Clock: clock}
}

type saveTimerReq struct {
	Status           string `json:"status"`
	RemainingSeconds *int64 `json:"remaining_seconds"`
	InitialMinutes   int    `json:"initial_minutes"`
}

type timerResp struct {
	TableID          string `json:"table_id"`
	Status           string `json:"status"`
	EndTime          int64  `json:"end_time,omitempty"`
	InitialMinutes   int    `json:"initial_minutes,omitempty"`
	RemainingSeconds *int64 `json:"remaining_seconds"`
}

// Save handles PUT /v1/tables/:id/timer.  The body carries the status the
// countdown belongs to and the seconds left.  Any previous timer for the
// table is replaced.
func (h *TimerHandler) Save(c echo.Context) error {
	tableID := tableParam(c)
	if tableID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table id is required"})
	}
	var req saveTimerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status, ok := model.ParseTableStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown table status"})
	}
	if req.RemainingSeconds == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "remaining_seconds is required"})
	}
	if req.InitialMinutes < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "initial_minutes must not be negative"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	rec, err := h.Store.Save(ctx, tableID, status, *req.RemainingSeconds, req.InitialMinutes)
	if err != nil {
		switch {
		case errors.Is(err, timer.ErrNegativeDuration):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "remaining_seconds must not be negative"})
		case errors.Is(err, timer.ErrDurationTooLarge):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "remaining_seconds is too large"})
		}
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("table_id", tableID).Msg("save timer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save timer"})
	}

	h.publish(c, queue.TableTimerEvent{
		Action:         queue.ActionSaved,
		TableID:        tableID,
		Status:         string(rec.Status),
		EndTime:        rec.EndTime,
		InitialMinutes: rec.InitialMinutes,
	})

	resp := timerResp{
		TableID:        tableID,
		Status:         string(rec.Status),
		EndTime:        rec.EndTime,
		InitialMinutes: rec.InitialMinutes,
	}
	if left, ok := h.Store.Left(rec); ok {
		resp.RemainingSeconds = &left
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/tables/:id/timer?status=<TableStatus>.  The status
// is the table's live status; a timer started under another status is
// reported as absent.  remaining_seconds is null when there is no
// running countdown.
func (h *TimerHandler) Get(c echo.Context) error {
	tableID := tableParam(c)
	if tableID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table id is required"})
	}
	status, ok := model.ParseTableStatus(c.QueryParam("status"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status query parameter must be a table status"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp := timerResp{TableID: tableID, Status: string(status)}
	if rec, left, ok := h.Store.Lookup(ctx, tableID, status); ok {
		resp.RemainingSeconds = &left
		resp.EndTime = rec.EndTime
		resp.InitialMinutes = rec.InitialMinutes
	}
	return c.JSON(http.StatusOK, resp)
}

// Clear handles DELETE /v1/tables/:id/timer.  Clearing a table without a
// timer still returns 204.
func (h *TimerHandler) Clear(c echo.Context) error {
	tableID := tableParam(c)
	if tableID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table id is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Store.Clear(ctx, tableID); err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("table_id", tableID).Msg("clear timer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear timer"})
	}
	h.publish(c, queue.TableTimerEvent{Action: queue.ActionCleared, TableID: tableID})
	return c.NoContent(http.StatusNoContent)
}

// ClearAll handles DELETE /v1/timers.  Only keys in the timer namespace
// are removed.
func (h *TimerHandler) ClearAll(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Store.ClearAll(ctx)
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("clear all timers failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear timers"})
	}
	h.publish(c, queue.TableTimerEvent{Action: queue.ActionClearedAll, Cleared: n})
	return c.JSON(http.StatusOK, echo.Map{"cleared": n})
}

// publish fills in the envelope and sends ev.  Failures are logged only;
// the timer change has already been stored.
func (h *TimerHandler) publish(c echo.Context, ev queue.TableTimerEvent) {
	ev.EventID = uuid.NewString()
	ev.OccurredAt = h.Clock.Now().UTC().Format(time.RFC3339)
	if uid, err := getUserID(c); err == nil {
		ev.ActorID = uid
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Publisher.PublishTimerEvent(ctx, ev); err != nil {
		zerolog.Ctx(c.Request().Context()).Warn().Err(err).Str("action", ev.Action).Msg("timer event not published")
	}
}
