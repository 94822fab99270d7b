package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// AirlineRepo encapsulates queries on the airlines table.
type AirlineRepo struct {
	q Querier
}

// NewAirlineRepo constructs an AirlineRepo over a pool or transaction.
func NewAirlineRepo(q Querier) *AirlineRepo { return &AirlineRepo{q: q} }

// FindByCode returns the airline with the given carrier code, or ErrNotFound.
func (r *AirlineRepo) FindByCode(ctx context.Context, code string) (*model.Airline, error) {
	const q = `SELECT id, name, code FROM airlines WHERE code = ?`
	var a model.Airline
	if err := r.q.QueryRowContext(ctx, q, code).Scan(&a.ID, &a.Name, &a.Code); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// List returns all airlines ordered by code.
func (r *AirlineRepo) List(ctx context.Context) ([]model.Airline, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, code FROM airlines ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Airline, 0)
	for rows.Next() {
		var a model.Airline
		if err := rows.Scan(&a.ID, &a.Name, &a.Code); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetOrCreate returns the airline with the given code, inserting it when
// missing.  The boolean reports whether a row was inserted.
func (r *AirlineRepo) GetOrCreate(ctx context.Context, code, name string) (*model.Airline, bool, error) {
	a, err := r.FindByCode(ctx, code)
	if err == nil {
		return a, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	res, err := r.q.ExecContext(ctx, `INSERT INTO airlines (name, code) VALUES (?, ?)`, name, code)
	if err != nil {
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	return &model.Airline{ID: uint64(id), Name: name, Code: code}, true, nil
}
