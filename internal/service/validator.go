// Package service holds the slot scheduling rules and the allocation
// service that applies them transactionally.
package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// ViolationCode identifies which scheduling rule rejected a slot.
type ViolationCode string

const (
	ViolationAirlineCapacity ViolationCode = "airline_capacity"
	ViolationSlotSpacing     ViolationCode = "slot_spacing"
	ViolationOriginHourly    ViolationCode = "origin_hourly_congestion"
)

// Violation is one failed rule with its user-facing message.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

// Limits are the thresholds of the three scheduling rules.
type Limits struct {
	MaxSlotsPerAirline      int // per (airline, route)
	MinSlotGapMinutes       int // each side of a slot, on the whole route
	MaxSlotsPerHourAtOrigin int // per origin city and clock hour
}

// DefaultLimits returns 4 slots per airline and route, a 30 minute gap
// and 6 departures per hour at an origin.
func DefaultLimits() Limits {
	return Limits{MaxSlotsPerAirline: 4, MinSlotGapMinutes: 30, MaxSlotsPerHourAtOrigin: 6}
}

// SlotStats is the read model the validator checks against.  Passing
// transaction-bound repositories makes the checks see the same snapshot
// the following writes use.
type SlotStats interface {
	CountByAirlineAndRoute(ctx context.Context, airlineID, routeID uint64) (int, error)
	ExistsOnRouteBetween(ctx context.Context, routeID uint64, from, to model.ClockTime) (bool, error)
	OriginCityID(ctx context.Context, routeID uint64) (uint64, error)
	CountFromOriginBetween(ctx context.Context, originCityID uint64, from, to model.ClockTime) (int, error)
}

// Validator decides whether a proposed slot may be created.  It has no
// side effects.
type Validator struct {
	limits Limits
}

// NewValidator returns a Validator enforcing limits.
func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate evaluates every rule for (airlineID, routeID, proposed) and
// returns all violations found; an empty result means the slot is allowed.
// Errors are storage failures, never rule outcomes.
//
// The spacing window is proposed ± MinSlotGapMinutes re-extracted as time
// of day.  Near midnight the lower bound wraps past the upper one and the
// range matches no slot, so spacing is not enforced across or near 00:00.
func (v *Validator) Validate(ctx context.Context, stats SlotStats, airlineID, routeID uint64, proposed model.ClockTime) ([]Violation, error) {
	var out []Violation

	held, err := stats.CountByAirlineAndRoute(ctx, airlineID, routeID)
	if err != nil {
		return nil, fmt.Errorf("count airline slots: %w", err)
	}
	if held >= v.limits.MaxSlotsPerAirline {
		out = append(out, Violation{
			Code:    ViolationAirlineCapacity,
			Message: fmt.Sprintf("Maximum slots per airline (%d) reached for this route", v.limits.MaxSlotsPerAirline),
		})
	}

	lo := proposed.Add(-v.limits.MinSlotGapMinutes)
	hi := proposed.Add(v.limits.MinSlotGapMinutes)
	conflict, err := stats.ExistsOnRouteBetween(ctx, routeID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("check slot spacing: %w", err)
	}
	if conflict {
		out = append(out, Violation{
			Code:    ViolationSlotSpacing,
			Message: fmt.Sprintf("Slot time conflicts with existing slots. Minimum gap required: %d minutes", v.limits.MinSlotGapMinutes),
		})
	}

	origin, err := stats.OriginCityID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("resolve route origin: %w", err)
	}
	hourStart, hourEnd := proposed.HourBounds()
	inHour, err := stats.CountFromOriginBetween(ctx, origin, hourStart, hourEnd)
	if err != nil {
		return nil, fmt.Errorf("count origin slots: %w", err)
	}
	if inHour >= v.limits.MaxSlotsPerHourAtOrigin {
		out = append(out, Violation{
			Code:    ViolationOriginHourly,
			Message: fmt.Sprintf("Maximum slots per hour (%d) reached at origin airport", v.limits.MaxSlotsPerHourAtOrigin),
		})
	}
	return out, nil
}
