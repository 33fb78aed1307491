package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo routing

	"github.com/iliyamo/restaurant-table-sessions/internal/handler"    // HTTP handlers
	"github.com/iliyamo/restaurant-table-sessions/internal/middleware" // JWT, role, cache middlewares
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
}

// Deps bundles what the /v1 API needs.  Limit and Cache may be nil, in
// which case rate limiting or response caching is skipped.
type Deps struct {
	JWTSecret string
	Slots     *handler.SlotHandler
	Timers    *handler.TimerHandler
	Limit     echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterAPI mounts the staff API under /v1.  Every route requires a
// valid JWT with the STAFF or ADMIN role; refreshing slots and wiping all
// timers are ADMIN only.
func RegisterAPI(e *echo.Echo, d Deps) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin),
	}
	if d.Limit != nil {
		mws = append(mws, d.Limit)
	}
	g := e.Group("/v1", mws...)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	var cached []echo.MiddlewareFunc
	if d.Cache != nil {
		cached = append(cached, d.Cache)
	}

	// ---- Slots ----
	g.GET("/slots", d.Slots.List, cached...)
	g.GET("/slots/grouped", d.Slots.Grouped, cached...)
	g.GET("/slots/active", d.Slots.Active) // never cached; changes every tick
	g.POST("/slots/refresh", d.Slots.Refresh, admin)

	// ---- Table timers ----
	g.PUT("/tables/:id/timer", d.Timers.Save)
	g.GET("/tables/:id/timer", d.Timers.Get)
	g.DELETE("/tables/:id/timer", d.Timers.Clear)
	g.DELETE("/timers", d.Timers.ClearAll, admin)
}
