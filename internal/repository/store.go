package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// Store owns the connection pool and the catalog tables.  All access goes
// through Tx so every service operation is a single transaction.
type Store struct {
	db      *sql.DB
	dialect Dialect
	movies  *Table[model.Movie]
	orders  *Table[model.Order]
}

// NewStore constructs a Store with the provided DB handle and dialect.
func NewStore(db *sql.DB, d Dialect) *Store {
	return &Store{
		db:      db,
		dialect: d,
		movies:  NewTable(d, movieMapping),
		orders:  NewTable(d, orderMapping),
	}
}

// Tx exposes the catalog tables bound to one transaction.
type Tx struct {
	Movies *Repo[model.Movie]
	Orders *Repo[model.Order]
}

// Tx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
// readOnly transactions use the dialect's weaker read-only options.
func (s *Store) Tx(ctx context.Context, readOnly bool, fn func(tx *Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, s.dialect.TxOptions(readOnly))
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()
	return fn(&Tx{
		Movies: s.movies.Bind(tx),
		Orders: s.orders.Bind(tx),
	})
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the catalog tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.dialect.Name(), err)
		}
	}
	return nil
}

// DB exposes the underlying sql.DB for callers that manage its lifetime.
func (s *Store) DB() *sql.DB {
	return s.db
}
