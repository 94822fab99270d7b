package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListCities handles GET /v1/cities.
func (h *SlotHandler) ListCities(c echo.Context) error {
	cities, err := h.svc.ListCities(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cities)
}

// ListAirlines handles GET /v1/airlines.
func (h *SlotHandler) ListAirlines(c echo.Context) error {
	airlines, err := h.svc.ListAirlines(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, airlines)
}

// ListRoutes handles GET /v1/routes; block_time is blank for routes that
// never received one.
func (h *SlotHandler) ListRoutes(c echo.Context) error {
	routes, err := h.svc.ListRoutes(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, routes)
}
