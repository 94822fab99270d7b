package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/citypair-slots/internal/model"
	"github.com/iliyamo/citypair-slots/internal/service"
)

// SlotService is the allocation API the handlers call.
type SlotService interface {
	CreateSlot(ctx context.Context, in service.CreateSlotInput) (*model.Slot, error)
	UpdateSlot(ctx context.Context, slotID uint64, slotTime, blockTime string) (*model.Slot, error)
	DeleteSlot(ctx context.Context, slotID uint64) error
	ListSlots(ctx context.Context) ([]model.SlotView, error)
	ListCities(ctx context.Context) ([]model.City, error)
	ListAirlines(ctx context.Context) ([]model.Airline, error)
	ListRoutes(ctx context.Context) ([]model.RouteView, error)
}

// Invalidator drops cached listings after a successful write.
type Invalidator func(ctx context.Context) error

// SlotHandler serves /v1/slots and the reference listings.
type SlotHandler struct {
	svc        SlotService
	invalidate Invalidator
	logger     *zap.Logger
}

// NewSlotHandler panics on a nil service.  invalidate may be nil when no
// response cache is configured.
func NewSlotHandler(svc SlotService, invalidate Invalidator, logger *zap.Logger) *SlotHandler {
	if svc == nil {
		panic("nil service passed to NewSlotHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotHandler{svc: svc, invalidate: invalidate, logger: logger}
}

// createSlotRequest accepts JSON or form fields with the same names.
type createSlotRequest struct {
	FromCity     string `json:"from_city"     form:"from_city"`
	ToCity       string `json:"to_city"       form:"to_city"`
	Airline      string `json:"airline"       form:"airline"`
	SlotTime     string `json:"slot_time"     form:"slot_time"`
	DurationMode string `json:"duration_mode" form:"duration_mode"`
	BlockTime    string `json:"block_time"    form:"block_time"`
}

type updateSlotRequest struct {
	SlotTime  string `json:"slot_time"  form:"slot_time"`
	BlockTime string `json:"block_time" form:"block_time"`
}

// ListSlots handles GET /v1/slots.
func (h *SlotHandler) ListSlots(c echo.Context) error {
	views, err := h.svc.ListSlots(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

// CreateSlot handles POST /v1/slots.  Rule violations come back as 422
// with every violation listed.
func (h *SlotHandler) CreateSlot(c echo.Context) error {
	var body createSlotRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	for _, f := range []struct{ name, value string }{
		{"from_city", body.FromCity}, {"to_city", body.ToCity}, {"airline", body.Airline}, {"slot_time", body.SlotTime},
	} {
		if strings.TrimSpace(f.value) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": f.name + " is required"})
		}
	}

	slot, err := h.svc.CreateSlot(c.Request().Context(), service.CreateSlotInput{
		FromCode:     strings.ToUpper(strings.TrimSpace(body.FromCity)),
		ToCode:       strings.ToUpper(strings.TrimSpace(body.ToCity)),
		AirlineCode:  strings.ToUpper(strings.TrimSpace(body.Airline)),
		SlotTime:     body.SlotTime,
		DurationMode: service.DurationMode(body.DurationMode),
		BlockTime:    body.BlockTime,
	})
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"error":      "Failed to create slot: " + ve.Error(),
				"violations": ve.Violations,
			})
		}
		return h.fail(c, err)
	}
	h.written(c)
	return c.JSON(http.StatusCreated, slot)
}

// UpdateSlot handles PUT /v1/slots/:id.
func (h *SlotHandler) UpdateSlot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var body updateSlotRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	slot, err := h.svc.UpdateSlot(c.Request().Context(), id, body.SlotTime, body.BlockTime)
	if err != nil {
		return h.fail(c, err)
	}
	h.written(c)
	return c.JSON(http.StatusOK, slot)
}

// DeleteSlot handles DELETE /v1/slots/:id.
func (h *SlotHandler) DeleteSlot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.svc.DeleteSlot(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	h.written(c)
	return c.JSON(http.StatusOK, map[string]uint64{"deleted": id})
}

// written invalidates cached listings.  A failure only means listings may
// be stale until the cache TTL expires.
func (h *SlotHandler) written(c echo.Context) {
	if h.invalidate == nil {
		return
	}
	if err := h.invalidate(c.Request().Context()); err != nil {
		h.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

// fail maps service errors to HTTP statuses.
func (h *SlotHandler) fail(c echo.Context, err error) error {
	var (
		nf *service.NotFoundError
		pe *model.ParseError
	)
	switch {
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, map[string]string{"error": nf.Error()})
	case errors.As(err, &pe):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": pe.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
