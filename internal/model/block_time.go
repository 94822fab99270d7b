package model

// DefaultBlockTime is assigned to a route when a slot is created in auto
// duration mode and the route has no block time yet.
var DefaultBlockTime = NewClock(2, 10, 0)

// BlockTime is the scheduled flight duration of a route.  There is at most
// one BlockTime per route; Duration is stored as HH:MM:SS.
type BlockTime struct {
	ID       uint64    `json:"id"`       // block_times.id
	RouteID  uint64    `json:"route_id"` // block_times.city_pair_id
	Duration ClockTime `json:"duration"` // block_times.duration
}
