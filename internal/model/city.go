package model

// City is an airport city.  AirportCode is unique and is the key callers
// use to address a city.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name (e.g. "Delhi").
//  AirportCode – unique IATA style code (e.g. "DEL").
type City struct {
	ID          uint64 `json:"id"`           // cities.id
	Name        string `json:"name"`         // cities.name
	AirportCode string `json:"airport_code"` // cities.airport_code
}

// Label renders the city the way listings show it, e.g. "Delhi (DEL)".
func (c City) Label() string { return c.Name + " (" + c.AirportCode + ")" }
