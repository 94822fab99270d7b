package model

// Route is an ordered origin → destination city pair.  At most one route
// exists per ordered pair; routes are created lazily the first time a slot
// is requested for the pair and are never removed by slot deletion.
type Route struct {
	ID         uint64 `json:"id"`           // city_pairs.id
	FromCityID uint64 `json:"from_city_id"` // city_pairs.from_city_id
	ToCityID   uint64 `json:"to_city_id"`   // city_pairs.to_city_id
}

// RouteView is a route resolved with its city codes and block time.
// BlockTime is empty when the route has no block time row.
type RouteView struct {
	ID        uint64 `json:"id"`
	FromCode  string `json:"from_code"`
	FromName  string `json:"from_name"`
	ToCode    string `json:"to_code"`
	ToName    string `json:"to_name"`
	BlockTime string `json:"block_time"`
}
