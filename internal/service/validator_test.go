package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// fakeStats answers the validator from an in-memory slot list.
type fakeStats struct {
	origin uint64
	slots  []fakeSlot
	err    error

	spacingFrom, spacingTo model.ClockTime
}

type fakeSlot struct {
	airlineID, routeID, originID uint64
	at                           model.ClockTime
}

func (f *fakeStats) CountByAirlineAndRoute(_ context.Context, airlineID, routeID uint64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, s := range f.slots {
		if s.airlineID == airlineID && s.routeID == routeID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStats) ExistsOnRouteBetween(_ context.Context, routeID uint64, from, to model.ClockTime) (bool, error) {
	f.spacingFrom, f.spacingTo = from, to
	for _, s := range f.slots {
		if s.routeID == routeID && s.at >= from && s.at <= to {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStats) OriginCityID(context.Context, uint64) (uint64, error) {
	return f.origin, nil
}

func (f *fakeStats) CountFromOriginBetween(_ context.Context, originID uint64, from, to model.ClockTime) (int, error) {
	n := 0
	for _, s := range f.slots {
		if s.originID == originID && s.at >= from && s.at <= to {
			n++
		}
	}
	return n, nil
}

const (
	routeDELBOM = 1
	routeDELBLR = 2
	indigo      = 10
	vistara     = 11
	delhi       = 100
)

func TestValidateAcceptsFreeSlot(t *testing.T) {
	v := NewValidator(DefaultLimits())
	stats := &fakeStats{origin: delhi}
	got, err := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(9, 30, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("violations = %+v, want none", got)
	}
}

func TestValidateAirlineCapacity(t *testing.T) {
	stats := &fakeStats{origin: delhi}
	for _, h := range []int{6, 8, 10, 12} {
		stats.slots = append(stats.slots, fakeSlot{indigo, routeDELBOM, delhi, model.NewClock(h, 0, 0)})
	}
	v := NewValidator(DefaultLimits())

	got, err := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(18, 0, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(got) != 1 || got[0].Code != ViolationAirlineCapacity {
		t.Fatalf("violations = %+v", got)
	}
	if got[0].Message != "Maximum slots per airline (4) reached for this route" {
		t.Fatalf("message = %q", got[0].Message)
	}

	// Another airline on the same route is unaffected.
	got, _ = v.Validate(context.Background(), stats, vistara, routeDELBOM, model.NewClock(18, 0, 0))
	if len(got) != 0 {
		t.Fatalf("other airline violations = %+v", got)
	}
}

func TestValidateSlotSpacing(t *testing.T) {
	stats := &fakeStats{origin: delhi, slots: []fakeSlot{
		{vistara, routeDELBOM, delhi, model.NewClock(9, 30, 0)},
	}}
	v := NewValidator(DefaultLimits())

	got, err := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(9, 45, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(got) != 1 || got[0].Code != ViolationSlotSpacing {
		t.Fatalf("violations = %+v", got)
	}
	if got[0].Message != "Slot time conflicts with existing slots. Minimum gap required: 30 minutes" {
		t.Fatalf("message = %q", got[0].Message)
	}
	if stats.spacingFrom.String() != "09:15:00" || stats.spacingTo.String() != "10:15:00" {
		t.Fatalf("window = %s..%s", stats.spacingFrom, stats.spacingTo)
	}

	// The bounds are inclusive: exactly 30 minutes away still conflicts.
	got, _ = v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(10, 0, 0))
	if len(got) != 1 {
		t.Fatalf("10:00 violations = %+v", got)
	}
	got, _ = v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(10, 1, 0))
	if len(got) != 0 {
		t.Fatalf("10:01 violations = %+v", got)
	}

	// Spacing is per route.
	got, _ = v.Validate(context.Background(), stats, indigo, routeDELBLR, model.NewClock(9, 45, 0))
	if len(got) != 0 {
		t.Fatalf("other route violations = %+v", got)
	}
}

func TestValidateSpacingWindowWrapsNearMidnight(t *testing.T) {
	stats := &fakeStats{origin: delhi, slots: []fakeSlot{
		{vistara, routeDELBOM, delhi, model.NewClock(0, 5, 0)},
	}}
	v := NewValidator(DefaultLimits())

	got, err := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(0, 10, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if stats.spacingFrom.String() != "23:40:00" || stats.spacingTo.String() != "00:40:00" {
		t.Fatalf("window = %s..%s", stats.spacingFrom, stats.spacingTo)
	}
	if len(got) != 0 {
		t.Fatalf("violations = %+v, want none for inverted window", got)
	}
}

func TestValidateOriginHourlyCongestion(t *testing.T) {
	stats := &fakeStats{origin: delhi}
	// Six departures from Delhi in the 14:00 hour spread over two routes.
	for i, m := range []int{0, 10, 20, 30, 40, 50} {
		route := uint64(routeDELBLR)
		if i%2 == 0 {
			route = routeDELBOM
		}
		stats.slots = append(stats.slots, fakeSlot{vistara, route, delhi, model.NewClock(14, m, 0)})
	}
	v := NewValidator(DefaultLimits())

	got, err := v.Validate(context.Background(), stats, indigo, 99, model.NewClock(14, 10, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(got) != 1 || got[0].Code != ViolationOriginHourly {
		t.Fatalf("violations = %+v", got)
	}
	if got[0].Message != "Maximum slots per hour (6) reached at origin airport" {
		t.Fatalf("message = %q", got[0].Message)
	}

	got, _ = v.Validate(context.Background(), stats, indigo, 99, model.NewClock(15, 10, 0))
	if len(got) != 0 {
		t.Fatalf("15:10 violations = %+v", got)
	}
}

func TestValidateReportsEveryViolationInOrder(t *testing.T) {
	stats := &fakeStats{origin: delhi}
	for _, m := range []int{0, 10, 20, 30} {
		stats.slots = append(stats.slots, fakeSlot{indigo, routeDELBOM, delhi, model.NewClock(14, m, 0)})
	}
	for _, m := range []int{40, 50} {
		stats.slots = append(stats.slots, fakeSlot{vistara, routeDELBLR, delhi, model.NewClock(14, m, 0)})
	}
	v := NewValidator(DefaultLimits())

	got, err := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(14, 15, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	ve := &ValidationError{Violations: got}
	want := []ViolationCode{ViolationAirlineCapacity, ViolationSlotSpacing, ViolationOriginHourly}
	if !reflect.DeepEqual(ve.Codes(), want) {
		t.Fatalf("codes = %v, want %v", ve.Codes(), want)
	}
	wantMsg := "Maximum slots per airline (4) reached for this route\n" +
		"Slot time conflicts with existing slots. Minimum gap required: 30 minutes\n" +
		"Maximum slots per hour (6) reached at origin airport"
	if ve.Error() != wantMsg {
		t.Fatalf("Error() = %q", ve.Error())
	}
}

func TestValidateCustomLimits(t *testing.T) {
	stats := &fakeStats{origin: delhi, slots: []fakeSlot{
		{indigo, routeDELBOM, delhi, model.NewClock(8, 0, 0)},
	}}
	v := NewValidator(Limits{MaxSlotsPerAirline: 1, MinSlotGapMinutes: 90, MaxSlotsPerHourAtOrigin: 1})

	got, _ := v.Validate(context.Background(), stats, indigo, routeDELBOM, model.NewClock(9, 15, 0))
	want := []ViolationCode{ViolationAirlineCapacity, ViolationSlotSpacing}
	if codes := (&ValidationError{Violations: got}).Codes(); !reflect.DeepEqual(codes, want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	if got[1].Message != "Slot time conflicts with existing slots. Minimum gap required: 90 minutes" {
		t.Fatalf("message = %q", got[1].Message)
	}
}

func TestValidatePropagatesStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	v := NewValidator(DefaultLimits())
	_, err := v.Validate(context.Background(), &fakeStats{err: boom}, indigo, routeDELBOM, model.NewClock(9, 0, 0))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
