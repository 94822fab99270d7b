package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// CityRepo encapsulates queries on the cities table.
type CityRepo struct {
	q Querier
}

// NewCityRepo constructs a CityRepo over a pool or transaction.
func NewCityRepo(q Querier) *CityRepo { return &CityRepo{q: q} }

// FindByCode returns the city with the given airport code, or ErrNotFound.
func (r *CityRepo) FindByCode(ctx context.Context, code string) (*model.City, error) {
	const q = `SELECT id, name, airport_code FROM cities WHERE airport_code = ?`
	var c model.City
	if err := r.q.QueryRowContext(ctx, q, code).Scan(&c.ID, &c.Name, &c.AirportCode); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// List returns all cities ordered by airport code.
func (r *CityRepo) List(ctx context.Context) ([]model.City, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, airport_code FROM cities ORDER BY airport_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.City, 0)
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.Name, &c.AirportCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetOrCreate returns the city with the given code, inserting it with name
// when it does not exist.  An existing city keeps its current name.
func (r *CityRepo) GetOrCreate(ctx context.Context, code, name string) (*model.City, bool, error) {
	c, err := r.FindByCode(ctx, code)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO cities (name, airport_code) VALUES (?, ?)`, name, code)
	if err != nil {
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	return &model.City{ID: uint64(id), Name: name, AirportCode: code}, true, nil
}
