// Package router registers the HTTP routes on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/citypair-slots/internal/handler"
)

// Middleware groups the optional per-route middleware.  Nil entries are
// skipped.
type Middleware struct {
	Cache     echo.MiddlewareFunc // applied to listing reads
	RateLimit echo.MiddlewareFunc // applied to slot writes
}

// RegisterRoutes exposes the health probe outside /v1.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSlots wires the slot API and reference listings under /v1.
func RegisterSlots(e *echo.Echo, h *handler.SlotHandler, mw Middleware) {
	v1 := e.Group("/v1")

	reads := pick(mw.Cache)
	v1.GET("/slots", h.ListSlots, reads...)
	v1.GET("/cities", h.ListCities, reads...)
	v1.GET("/airlines", h.ListAirlines, reads...)
	v1.GET("/routes", h.ListRoutes, reads...)

	writes := pick(mw.RateLimit)
	v1.POST("/slots", h.CreateSlot, writes...)
	v1.PUT("/slots/:id", h.UpdateSlot, writes...)
	v1.DELETE("/slots/:id", h.DeleteSlot, writes...)
}

func pick(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
