package model

// Airline is a carrier identified by its unique code (e.g. "6E").
type Airline struct {
	ID   uint64 `json:"id"`   // airlines.id
	Name string `json:"name"` // airlines.name
	Code string `json:"code"` // airlines.code
}

// Label renders the airline as "Name (Code)".
func (a Airline) Label() string { return a.Name + " (" + a.Code + ")" }
