// Package seed loads the sample cities, airlines, routes and slot used for
// local runs and demos.  Seeding is idempotent: rows that already exist are
// left untouched, including block times edited since the last run.
package seed

import (
	"context"
	"fmt"

	"github.com/iliyamo/citypair-slots/internal/model"
	"github.com/iliyamo/citypair-slots/internal/repository"
)

type namedCode struct{ code, name string }

var cities = []namedCode{
	{"DEL", "Delhi"},
	{"BOM", "Mumbai"},
	{"BLR", "Bangalore"},
	{"MAA", "Chennai"},
	{"HYD", "Hyderabad"},
	{"CCU", "Kolkata"},
	{"COK", "Kochi"},
	{"PNQ", "Pune"},
	{"GOI", "Goa"},
	{"AMD", "Ahmedabad"},
}

var airlines = []namedCode{
	{"6E", "IndiGo"},
	{"AI", "Air India"},
	{"UK", "Vistara"},
	{"SG", "SpiceJet"},
	{"I5", "AirAsia India"},
	{"G8", "Go First"},
}

var routes = []struct {
	from, to string
	duration model.ClockTime
}{
	{"DEL", "BOM", model.NewClock(2, 10, 0)},
	{"DEL", "BLR", model.NewClock(2, 45, 0)},
	{"DEL", "MAA", model.NewClock(2, 30, 0)},
	{"BOM", "BLR", model.NewClock(1, 45, 0)},
	{"BOM", "MAA", model.NewClock(1, 50, 0)},
	{"BLR", "HYD", model.NewClock(1, 15, 0)},
	{"DEL", "HYD", model.NewClock(2, 0, 0)},
	{"BOM", "HYD", model.NewClock(1, 30, 0)},
}

// Result counts the rows inserted by one Run.
type Result struct {
	Cities, Airlines, Routes, BlockTimes, Slots int
}

func (r Result) String() string {
	return fmt.Sprintf("cities=%d airlines=%d routes=%d block_times=%d slots=%d",
		r.Cities, r.Airlines, r.Routes, r.BlockTimes, r.Slots)
}

// Run inserts whatever sample data is missing in a single transaction.
func Run(ctx context.Context, tx repository.TxManager) (Result, error) {
	var res Result
	err := tx.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		res = Result{}
		byCode := make(map[string]*model.City, len(cities))
		for _, c := range cities {
			city, created, err := repos.Cities.GetOrCreate(ctx, c.code, c.name)
			if err != nil {
				return fmt.Errorf("seed city %s: %w", c.code, err)
			}
			byCode[c.code] = city
			res.Cities += count(created)
		}

		var indigo *model.Airline
		for _, a := range airlines {
			airline, created, err := repos.Airlines.GetOrCreate(ctx, a.code, a.name)
			if err != nil {
				return fmt.Errorf("seed airline %s: %w", a.code, err)
			}
			if a.code == "6E" {
				indigo = airline
			}
			res.Airlines += count(created)
		}

		var delBom *model.Route
		for _, r := range routes {
			route, created, err := repos.Routes.GetOrCreate(ctx, byCode[r.from].ID, byCode[r.to].ID)
			if err != nil {
				return fmt.Errorf("seed route %s-%s: %w", r.from, r.to, err)
			}
			res.Routes += count(created)
			_, inserted, err := repos.BlockTimes.InsertIfAbsent(ctx, route.ID, r.duration)
			if err != nil {
				return fmt.Errorf("seed block time %s-%s: %w", r.from, r.to, err)
			}
			res.BlockTimes += count(inserted)
			if r.from == "DEL" && r.to == "BOM" {
				delBom = route
			}
		}

		at := model.NewClock(9, 30, 0)
		exists, err := repos.Slots.Exists(ctx, delBom.ID, indigo.ID, at)
		if err != nil {
			return fmt.Errorf("check sample slot: %w", err)
		}
		if !exists {
			if err := repos.Slots.Create(ctx, &model.Slot{RouteID: delBom.ID, AirlineID: indigo.ID, SlotTime: at}); err != nil {
				return fmt.Errorf("seed slot: %w", err)
			}
			res.Slots++
		}
		return nil
	})
	return res, err
}

func count(b bool) int {
	if b {
		return 1
	}
	return 0
}
