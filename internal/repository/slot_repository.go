package repository

import (
	"context"

	"github.com/iliyamo/citypair-slots/internal/model"
)

// SlotRepo manages the slots table and answers the counting queries the
// slot validator needs.  Slot times are stored as zero-padded HH:MM:SS
// text, so BETWEEN compares them in time-of-day order.
type SlotRepo struct {
	q Querier
}

// NewSlotRepo constructs a SlotRepo over a pool or transaction.
func NewSlotRepo(q Querier) *SlotRepo { return &SlotRepo{q: q} }

// Create inserts a slot and populates its ID.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (city_pair_id, airline_id, slot_time) VALUES (?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, s.RouteID, s.AirlineID, s.SlotTime.String())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns the slot with the given ID, or ErrNotFound.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	const q = `SELECT id, city_pair_id, airline_id, slot_time FROM slots WHERE id = ?`
	var (
		s   model.Slot
		raw string
	)
	if err := r.q.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.RouteID, &s.AirlineID, &raw); err != nil {
		return nil, notFound(err)
	}
	t, err := model.ParseStoredClock(raw)
	if err != nil {
		return nil, err
	}
	s.SlotTime = t
	return &s, nil
}

// UpdateTime overwrites the slot time.  It returns ErrNotFound when no
// row has the given ID.
func (r *SlotRepo) UpdateTime(ctx context.Context, id uint64, t model.ClockTime) error {
	res, err := r.q.ExecContext(ctx, `UPDATE slots SET slot_time = ? WHERE id = ?`, t.String(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a single slot row.  Its route and block time are kept.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CountByAirlineAndRoute counts the slots an airline holds on a route.
func (r *SlotRepo) CountByAirlineAndRoute(ctx context.Context, airlineID, routeID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE airline_id = ? AND city_pair_id = ?`,
		airlineID, routeID,
	).Scan(&n)
	return n, err
}

// Exists reports whether the airline already holds exactly this time on the
// route.
func (r *SlotRepo) Exists(ctx context.Context, routeID, airlineID uint64, t model.ClockTime) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE city_pair_id = ? AND airline_id = ? AND slot_time = ?`,
		routeID, airlineID, t.String(),
	).Scan(&n)
	return n > 0, err
}

// ExistsOnRouteBetween reports whether any slot on the route, from any
// airline, has a time in the closed range [from, to].  A range with
// from > to matches nothing.
func (r *SlotRepo) ExistsOnRouteBetween(ctx context.Context, routeID uint64, from, to model.ClockTime) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slots WHERE city_pair_id = ? AND slot_time BETWEEN ? AND ?`,
		routeID, from.String(), to.String(),
	).Scan(&n)
	return n > 0, err
}

// CountFromOriginBetween counts slots on every route departing the origin
// city with a time in the closed range [from, to].
func (r *SlotRepo) CountFromOriginBetween(ctx context.Context, originCityID uint64, from, to model.ClockTime) (int, error) {
	const q = `SELECT COUNT(*)
	           FROM slots s
	           JOIN city_pairs cp ON cp.id = s.city_pair_id
	           WHERE cp.from_city_id = ? AND s.slot_time BETWEEN ? AND ?`
	var n int
	err := r.q.QueryRowContext(ctx, q, originCityID, from.String(), to.String()).Scan(&n)
	return n, err
}

const slotViewQuery = `SELECT s.id, a.code, a.name, fc.airport_code, fc.name, tc.airport_code, tc.name,
	       s.slot_time, COALESCE(bt.duration, '')
	FROM slots s
	JOIN airlines a ON a.id = s.airline_id
	JOIN city_pairs cp ON cp.id = s.city_pair_id
	JOIN cities fc ON fc.id = cp.from_city_id
	JOIN cities tc ON tc.id = cp.to_city_id
	LEFT JOIN block_times bt ON bt.city_pair_id = cp.id`

// ListViews returns every slot joined with its route, cities, airline and
// block time in one query, ordered by slot ID.
func (r *SlotRepo) ListViews(ctx context.Context) ([]model.SlotView, error) {
	rows, err := r.q.QueryContext(ctx, slotViewQuery+` ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.SlotView, 0)
	for rows.Next() {
		v, err := scanSlotView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetView returns one slot in listing form, or ErrNotFound.
func (r *SlotRepo) GetView(ctx context.Context, id uint64) (*model.SlotView, error) {
	v, err := scanSlotView(r.q.QueryRowContext(ctx, slotViewQuery+` WHERE s.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func scanSlotView(row interface{ Scan(dest ...any) error }) (model.SlotView, error) {
	var (
		v           model.SlotView
		from, to    model.City
		airlineName string
	)
	if err := row.Scan(
		&v.ID, &v.AirlineCode, &airlineName,
		&from.AirportCode, &from.Name, &to.AirportCode, &to.Name,
		&v.SlotTime, &v.BlockTime,
	); err != nil {
		return model.SlotView{}, err
	}
	v.Airline = model.Airline{Name: airlineName, Code: v.AirlineCode}.Label()
	v.FromCode, v.FromCity = from.AirportCode, from.Label()
	v.ToCode, v.ToCity = to.AirportCode, to.Label()
	return v, nil
}
