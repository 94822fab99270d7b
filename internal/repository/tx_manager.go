package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Repositories bundles every repository bound to the same Querier.
type Repositories struct {
	Cities     *CityRepo
	Airlines   *AirlineRepo
	Routes     *RouteRepo
	BlockTimes *BlockTimeRepo
	Slots      *SlotRepo
}

// NewRepositories binds all repositories to q.
func NewRepositories(q Querier) Repositories {
	return Repositories{
		Cities:     NewCityRepo(q),
		Airlines:   NewAirlineRepo(q),
		Routes:     NewRouteRepo(q),
		BlockTimes: NewBlockTimeRepo(q),
		Slots:      NewSlotRepo(q),
	}
}

// TxManager runs a unit of work inside one database transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// SQLTxManager is the database/sql implementation of TxManager.
type SQLTxManager struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewSQLTxManager returns a TxManager that begins transactions on db with
// opts (nil selects the driver default isolation).
func NewSQLTxManager(db *sql.DB, opts *sql.TxOptions) *SQLTxManager {
	return &SQLTxManager{db: db, opts: opts}
}

// WithTx begins a transaction, hands transaction-bound repositories to fn
// and commits when fn returns nil.  Any error from fn, and any panic,
// rolls the transaction back; fn's error is returned unchanged.
func (m *SQLTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
