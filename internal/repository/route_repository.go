package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// RouteRepo manages the city_pairs table.  The (from_city_id, to_city_id)
// pair is unique; GetOrCreate is the only way routes come into existence.
type RouteRepo struct {
	q Querier
}

// NewRouteRepo constructs a RouteRepo over a pool or transaction.
func NewRouteRepo(q Querier) *RouteRepo { return &RouteRepo{q: q} }

// Find returns the route for the ordered pair, or ErrNotFound.
func (r *RouteRepo) Find(ctx context.Context, fromCityID, toCityID uint64) (*model.Route, error) {
	const q = `SELECT id, from_city_id, to_city_id FROM city_pairs WHERE from_city_id = ? AND to_city_id = ?`
	var rt model.Route
	if err := r.q.QueryRowContext(ctx, q, fromCityID, toCityID).Scan(&rt.ID, &rt.FromCityID, &rt.ToCityID); err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

// GetOrCreate returns the route for the ordered pair, inserting it when
// missing.  If a concurrent writer inserts the same pair first the unique
// key rejects our insert and the existing row is returned instead.
func (r *RouteRepo) GetOrCreate(ctx context.Context, fromCityID, toCityID uint64) (*model.Route, bool, error) {
	rt, err := r.Find(ctx, fromCityID, toCityID)
	if err == nil {
		return rt, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	res, insErr := r.q.ExecContext(ctx, `INSERT INTO city_pairs (from_city_id, to_city_id) VALUES (?, ?)`, fromCityID, toCityID)
	if insErr != nil {
		if rt, err := r.Find(ctx, fromCityID, toCityID); err == nil {
			return rt, false, nil
		}
		return nil, false, insErr
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	return &model.Route{ID: uint64(id), FromCityID: fromCityID, ToCityID: toCityID}, true, nil
}

// OriginCityID resolves the origin city of a route with a single query.
func (r *RouteRepo) OriginCityID(ctx context.Context, routeID uint64) (uint64, error) {
	var id uint64
	if err := r.q.QueryRowContext(ctx, `SELECT from_city_id FROM city_pairs WHERE id = ?`, routeID).Scan(&id); err != nil {
		return 0, notFound(err)
	}
	return id, nil
}

// ListViews returns every route with its city codes, names and block time
// ordered by origin then destination code.  Routes without a block time
// row have an empty BlockTime.
func (r *RouteRepo) ListViews(ctx context.Context) ([]model.RouteView, error) {
	const q = `SELECT cp.id, fc.airport_code, fc.name, tc.airport_code, tc.name, COALESCE(bt.duration, '')
	           FROM city_pairs cp
	           JOIN cities fc ON fc.id = cp.from_city_id
	           JOIN cities tc ON tc.id = cp.to_city_id
	           LEFT JOIN block_times bt ON bt.city_pair_id = cp.id
	           ORDER BY fc.airport_code, tc.airport_code`
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.RouteView, 0)
	for rows.Next() {
		var v model.RouteView
		if err := rows.Scan(&v.ID, &v.FromCode, &v.FromName, &v.ToCode, &v.ToName, &v.BlockTime); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
