package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/citypair-slots/internal/model"
	"github.com/iliyamo/citypair-slots/internal/queue"
	"github.com/iliyamo/citypair-slots/internal/repository"
)

// DurationMode selects how CreateSlot sets the route's block time.
type DurationMode string

const (
	// DurationAuto assigns model.DefaultBlockTime only when the route has
	// no block time yet; an existing value is never overwritten.
	DurationAuto DurationMode = "auto"
	// DurationManual creates or overwrites the block time with the
	// caller-supplied duration.
	DurationManual DurationMode = "manual"
)

// ParseDurationMode accepts "auto", "manual" or empty (auto).
func ParseDurationMode(s string) (DurationMode, error) {
	switch DurationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DurationAuto:
		return DurationAuto, nil
	case DurationManual:
		return DurationManual, nil
	default:
		return "", &model.ParseError{Field: "duration_mode", Value: s}
	}
}

// CreateSlotInput is a proposed allocation as received from callers.
// Times are HH:MM strings; BlockTime is read only in manual mode.
type CreateSlotInput struct {
	FromCode     string
	ToCode       string
	AirlineCode  string
	SlotTime     string
	DurationMode DurationMode
	BlockTime    string
}

// EventPublisher receives slot events after each committed write.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SlotEvent) error
}

// SlotService applies the scheduling rules and persists slots together
// with their route and block time.  Writes run in one transaction from
// TxManager; listings read through the pool-bound repositories.
type SlotService struct {
	tx        repository.TxManager
	reads     repository.Repositories
	validator *Validator
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlotService wires the service.  events may be nil to disable
// publishing.
func NewSlotService(tx repository.TxManager, reads repository.Repositories, validator *Validator, events EventPublisher, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		tx:        tx,
		reads:     reads,
		validator: validator,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSlot resolves the cities and airline, gets or creates the route,
// validates the proposed time and, when no rule is violated, writes the
// block time (per the duration mode) and the slot.  Everything happens in
// one transaction: any failure, including a *ValidationError, leaves no
// route, block time or slot behind.
func (s *SlotService) CreateSlot(ctx context.Context, in CreateSlotInput) (*model.Slot, error) {
	mode, err := ParseDurationMode(string(in.DurationMode))
	if err != nil {
		return nil, err
	}

	var (
		slot      *model.Slot
		blockTime model.ClockTime
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		from, err := findCity(ctx, repos, in.FromCode)
		if err != nil {
			return err
		}
		to, err := findCity(ctx, repos, in.ToCode)
		if err != nil {
			return err
		}
		airline, err := repos.Airlines.FindByCode(ctx, in.AirlineCode)
		if err != nil {
			return lookupError(err, "airline", in.AirlineCode)
		}

		route, _, err := repos.Routes.GetOrCreate(ctx, from.ID, to.ID)
		if err != nil {
			return fmt.Errorf("get or create route: %w", err)
		}

		slotTime, err := model.ParseClock("slot_time", in.SlotTime)
		if err != nil {
			return err
		}

		violations, err := s.validator.Validate(ctx, statsOf(repos), airline.ID, route.ID, slotTime)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return &ValidationError{Violations: violations}
		}

		bt, err := s.applyBlockTime(ctx, repos, route.ID, mode, in.BlockTime)
		if err != nil {
			return err
		}
		blockTime = bt.Duration

		slot = &model.Slot{RouteID: route.ID, AirlineID: airline.ID, SlotTime: slotTime}
		if err := repos.Slots.Create(ctx, slot); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("create slot", err,
			zap.String("from", in.FromCode), zap.String("to", in.ToCode),
			zap.String("airline", in.AirlineCode), zap.String("slot_time", in.SlotTime))
		return nil, err
	}

	s.logger.Info("slot created",
		zap.Uint64("slot_id", slot.ID), zap.Uint64("route_id", slot.RouteID),
		zap.String("airline", in.AirlineCode), zap.Stringer("slot_time", slot.SlotTime))
	s.publish(ctx, queue.SlotEvent{
		Type:        queue.SlotCreated,
		SlotID:      slot.ID,
		RouteID:     slot.RouteID,
		AirlineID:   slot.AirlineID,
		AirlineCode: in.AirlineCode,
		FromCode:    in.FromCode,
		ToCode:      in.ToCode,
		SlotTime:    slot.SlotTime.String(),
		BlockTime:   blockTime.String(),
	})
	return slot, nil
}

func (s *SlotService) applyBlockTime(ctx context.Context, repos repository.Repositories, routeID uint64, mode DurationMode, manual string) (*model.BlockTime, error) {
	if mode == DurationAuto {
		bt, _, err := repos.BlockTimes.InsertIfAbsent(ctx, routeID, model.DefaultBlockTime)
		if err != nil {
			return nil, fmt.Errorf("insert default block time: %w", err)
		}
		return bt, nil
	}
	d, err := model.ParseClock("block_time", manual)
	if err != nil {
		return nil, err
	}
	bt, err := repos.BlockTimes.Upsert(ctx, routeID, d)
	if err != nil {
		return nil, fmt.Errorf("upsert block time: %w", err)
	}
	return bt, nil
}

// UpdateSlot overwrites a slot's time and its route's block time (creating
// the block time if the route has none).  The scheduling rules are not
// re-checked on this path.  Both writes share one transaction.
func (s *SlotService) UpdateSlot(ctx context.Context, slotID uint64, slotTime, blockTime string) (*model.Slot, error) {
	var (
		slot     *model.Slot
		view     *model.SlotView
		duration model.ClockTime
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Slots.GetByID(ctx, slotID)
		if err != nil {
			return lookupError(err, "slot", strconv.FormatUint(slotID, 10))
		}
		t, err := model.ParseClock("slot_time", slotTime)
		if err != nil {
			return err
		}
		d, err := model.ParseClock("block_time", blockTime)
		if err != nil {
			return err
		}
		if err := repos.Slots.UpdateTime(ctx, slotID, t); err != nil {
			return lookupError(err, "slot", strconv.FormatUint(slotID, 10))
		}
		if _, err := repos.BlockTimes.Upsert(ctx, current.RouteID, d); err != nil {
			return fmt.Errorf("upsert block time: %w", err)
		}
		v, err := repos.Slots.GetView(ctx, slotID)
		if err != nil {
			return fmt.Errorf("load slot view: %w", err)
		}
		current.SlotTime = t
		slot, duration, view = current, d, v
		return nil
	})
	if err != nil {
		s.logFailure("update slot", err, zap.Uint64("slot_id", slotID))
		return nil, err
	}

	s.logger.Info("slot updated", zap.Uint64("slot_id", slot.ID),
		zap.Stringer("slot_time", slot.SlotTime), zap.Stringer("block_time", duration))
	s.publish(ctx, queue.SlotEvent{
		Type:        queue.SlotUpdated,
		SlotID:      slot.ID,
		RouteID:     slot.RouteID,
		AirlineID:   slot.AirlineID,
		AirlineCode: view.AirlineCode,
		FromCode:    view.FromCode,
		ToCode:      view.ToCode,
		SlotTime:    slot.SlotTime.String(),
		BlockTime:   duration.String(),
	})
	return slot, nil
}

// DeleteSlot removes one slot.  The route and its block time remain.
func (s *SlotService) DeleteSlot(ctx context.Context, slotID uint64) error {
	var (
		slot *model.Slot
		view *model.SlotView
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		key := strconv.FormatUint(slotID, 10)
		current, err := repos.Slots.GetByID(ctx, slotID)
		if err != nil {
			return lookupError(err, "slot", key)
		}
		// Codes are read before the row goes away.
		v, err := repos.Slots.GetView(ctx, slotID)
		if err != nil {
			return fmt.Errorf("load slot view: %w", err)
		}
		if err := repos.Slots.Delete(ctx, slotID); err != nil {
			return lookupError(err, "slot", key)
		}
		slot, view = current, v
		return nil
	})
	if err != nil {
		s.logFailure("delete slot", err, zap.Uint64("slot_id", slotID))
		return err
	}

	s.logger.Info("slot deleted", zap.Uint64("slot_id", slotID))
	s.publish(ctx, queue.SlotEvent{
		Type:        queue.SlotDeleted,
		SlotID:      slot.ID,
		RouteID:     slot.RouteID,
		AirlineID:   slot.AirlineID,
		AirlineCode: view.AirlineCode,
		FromCode:    view.FromCode,
		ToCode:      view.ToCode,
		SlotTime:    slot.SlotTime.String(),
		BlockTime:   view.BlockTime,
	})
	return nil
}

// ListSlots returns every slot with its airline, cities and block time.
func (s *SlotService) ListSlots(ctx context.Context) ([]model.SlotView, error) {
	views, err := s.reads.Slots.ListViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return views, nil
}

// ListCities returns all cities ordered by airport code.
func (s *SlotService) ListCities(ctx context.Context) ([]model.City, error) {
	cities, err := s.reads.Cities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// ListAirlines returns all airlines ordered by code.
func (s *SlotService) ListAirlines(ctx context.Context) ([]model.Airline, error) {
	airlines, err := s.reads.Airlines.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list airlines: %w", err)
	}
	return airlines, nil
}

// ListRoutes returns all routes with their block times.
func (s *SlotService) ListRoutes(ctx context.Context) ([]model.RouteView, error) {
	routes, err := s.reads.Routes.ListViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

func (s *SlotService) publish(ctx context.Context, ev queue.SlotEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC().Format(time.RFC3339)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("slot event not published", zap.String("type", string(ev.Type)),
			zap.Uint64("slot_id", ev.SlotID), zap.Error(err))
	}
}

// logFailure logs caller mistakes at info and everything else at error.
func (s *SlotService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if IsClientError(err) {
		s.logger.Info(op+" rejected", fields...)
		return
	}
	s.logger.Error(op+" failed", fields...)
}

// IsClientError reports whether err is a NotFoundError, ValidationError
// or ParseError, i.e. caused by the request rather than the system.
func IsClientError(err error) bool {
	var (
		nf *NotFoundError
		ve *ValidationError
		pe *model.ParseError
	)
	return errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &pe)
}

func findCity(ctx context.Context, repos repository.Repositories, code string) (*model.City, error) {
	c, err := repos.Cities.FindByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "city", code)
	}
	return c, nil
}

// lookupError turns repository.ErrNotFound into a NotFoundError and wraps
// any other failure.
func lookupError(err error, entity, key string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return fmt.Errorf("load %s %s: %w", entity, key, err)
}

// repoStats adapts transaction-bound repositories to SlotStats.
type repoStats struct {
	routes *repository.RouteRepo
	slots  *repository.SlotRepo
}

func statsOf(repos repository.Repositories) SlotStats {
	return repoStats{routes: repos.Routes, slots: repos.Slots}
}

func (r repoStats) CountByAirlineAndRoute(ctx context.Context, airlineID, routeID uint64) (int, error) {
	return r.slots.CountByAirlineAndRoute(ctx, airlineID, routeID)
}

func (r repoStats) ExistsOnRouteBetween(ctx context.Context, routeID uint64, from, to model.ClockTime) (bool, error) {
	return r.slots.ExistsOnRouteBetween(ctx, routeID, from, to)
}

func (r repoStats) OriginCityID(ctx context.Context, routeID uint64) (uint64, error) {
	return r.routes.OriginCityID(ctx, routeID)
}

func (r repoStats) CountFromOriginBetween(ctx context.Context, originCityID uint64, from, to model.ClockTime) (int, error) {
	return r.slots.CountFromOriginBetween(ctx, originCityID, from, to)
}
