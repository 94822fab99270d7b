package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// BlockTimeRepo manages block_times.  city_pair_id is unique, so a route
// has at most one block time; writes go through Upsert or InsertIfAbsent.
type BlockTimeRepo struct {
	q Querier
}

// NewBlockTimeRepo constructs a BlockTimeRepo over a pool or transaction.
func NewBlockTimeRepo(q Querier) *BlockTimeRepo { return &BlockTimeRepo{q: q} }

// Get returns the block time of a route, or ErrNotFound.
func (r *BlockTimeRepo) Get(ctx context.Context, routeID uint64) (*model.BlockTime, error) {
	const q = `SELECT id, city_pair_id, duration FROM block_times WHERE city_pair_id = ?`
	var (
		bt  model.BlockTime
		raw string
	)
	if err := r.q.QueryRowContext(ctx, q, routeID).Scan(&bt.ID, &bt.RouteID, &raw); err != nil {
		return nil, notFound(err)
	}
	d, err := model.ParseStoredClock(raw)
	if err != nil {
		return nil, err
	}
	bt.Duration = d
	return &bt, nil
}

// Upsert creates the route's block time or overwrites its duration.
func (r *BlockTimeRepo) Upsert(ctx context.Context, routeID uint64, d model.ClockTime) (*model.BlockTime, error) {
	existing, err := r.Get(ctx, routeID)
	switch {
	case err == nil:
		if _, err := r.q.ExecContext(ctx, `UPDATE block_times SET duration = ? WHERE id = ?`, d.String(), existing.ID); err != nil {
			return nil, err
		}
		existing.Duration = d
		return existing, nil
	case errors.Is(err, ErrNotFound):
		return r.insert(ctx, routeID, d)
	default:
		return nil, err
	}
}

// InsertIfAbsent creates the block time only when the route has none and
// otherwise returns the stored row untouched.  The boolean reports whether
// a row was inserted.
func (r *BlockTimeRepo) InsertIfAbsent(ctx context.Context, routeID uint64, d model.ClockTime) (*model.BlockTime, bool, error) {
	existing, err := r.Get(ctx, routeID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	bt, err := r.insert(ctx, routeID, d)
	if err != nil {
		return nil, false, err
	}
	return bt, true, nil
}

func (r *BlockTimeRepo) insert(ctx context.Context, routeID uint64, d model.ClockTime) (*model.BlockTime, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO block_times (city_pair_id, duration) VALUES (?, ?)`, routeID, d.String())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.BlockTime{ID: uint64(id), RouteID: routeID, Duration: d}, nil
}
