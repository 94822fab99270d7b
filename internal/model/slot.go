package model

// Slot is a departure time assigned to one airline on one route.
type Slot struct {
	ID        uint64    `json:"id"`         // slots.id
	RouteID   uint64    `json:"route_id"`   // slots.city_pair_id
	AirlineID uint64    `json:"airline_id"` // slots.airline_id
	SlotTime  ClockTime `json:"slot_time"`  // slots.slot_time
}

// SlotView is a slot joined with its route, airline, cities and block time
// for listings.  BlockTime is blank when the route has no block time row.
type SlotView struct {
	ID          uint64 `json:"id"`
	AirlineCode string `json:"airline_code"`
	Airline     string `json:"airline"`
	FromCode    string `json:"from_code"`
	FromCity    string `json:"from_city"`
	ToCode      string `json:"to_code"`
	ToCity      string `json:"to_city"`
	SlotTime    string `json:"slot_time"`
	BlockTime   string `json:"block_time"`
}
