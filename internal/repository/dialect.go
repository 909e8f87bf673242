package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect isolates the SQL differences between the supported engines.
// Everything else in this package is plain ANSI SQL.
type Dialect interface {
	// Name is the database/sql driver name registered for the engine.
	Name() string
	// Placeholder returns the bind marker for the n-th argument (1 based).
	Placeholder(n int) string
	// Contains renders a case-sensitive "column contains arg" condition.
	Contains(column, placeholder string) string
	// ReturningID reports whether inserts must use RETURNING id instead of
	// sql.Result.LastInsertId.
	ReturningID() bool
	// TxOptions returns the options used to begin a transaction.
	TxOptions(readOnly bool) *sql.TxOptions
	// Schema returns the DDL statements that create the catalog tables.
	Schema() []string
	// UniqueViolation reports whether err is the engine's duplicate key error.
	UniqueViolation(err error) bool
}

// DialectFor returns the dialect for a configured driver name.  Both the
// short names used in configuration and the registered driver names are
// accepted.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
)

func readCommitted(readOnly bool) *sql.TxOptions {
	if !readOnly {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string                     { return "mysql" }
func (mysqlDialect) Placeholder(int) string           { return "?" }
func (mysqlDialect) ReturningID() bool                { return false }
func (mysqlDialect) TxOptions(ro bool) *sql.TxOptions { return readCommitted(ro) }

// The explicit binary collation keeps the match case sensitive even on
// tables created with the server's default case-insensitive collation.
func (mysqlDialect) Contains(column, ph string) string {
	return "LOCATE(" + ph + ", " + column + " COLLATE utf8mb4_bin) > 0"
}

func (mysqlDialect) UniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062 // ER_DUP_ENTRY
}

func (mysqlDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name         VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			release_date DATE NOT NULL,
			cost         INT NOT NULL,
			UNIQUE KEY uq_movies_name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			movie_id     BIGINT UNSIGNED NOT NULL,
			order_time   DATE NOT NULL,
			participants INT NOT NULL,
			KEY idx_orders_movie_id (movie_id),
			CONSTRAINT fk_orders_movie FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string                     { return "pgx" }
func (postgresDialect) Placeholder(n int) string         { return "$" + strconv.Itoa(n) }
func (postgresDialect) ReturningID() bool                { return true }
func (postgresDialect) TxOptions(ro bool) *sql.TxOptions { return readCommitted(ro) }

func (postgresDialect) Contains(column, ph string) string {
	return "strpos(" + column + ", " + ph + ") > 0"
}

func (postgresDialect) UniqueViolation(err error) bool {
	var pe *pgconn.PgError
	return errors.As(err, &pe) && pe.Code == "23505" // unique_violation
}

func (postgresDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id           BIGSERIAL PRIMARY KEY,
			name         VARCHAR(255) NOT NULL UNIQUE,
			release_date DATE NOT NULL,
			cost         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           BIGSERIAL PRIMARY KEY,
			movie_id     BIGINT NOT NULL REFERENCES movies (id) ON DELETE CASCADE,
			order_time   DATE NOT NULL,
			participants INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_movie_id ON orders (movie_id)`,
	}
}

// sqliteDialect backs local development and the test suites.  SQLite has
// no read-only isolation level worth asking for, so transactions always
// use the driver defaults.
type sqliteDialect struct{}

func (sqliteDialect) Name() string                  { return "sqlite" }
func (sqliteDialect) Placeholder(int) string        { return "?" }
func (sqliteDialect) ReturningID() bool             { return false }
func (sqliteDialect) TxOptions(bool) *sql.TxOptions { return nil }

func (sqliteDialect) Contains(column, ph string) string {
	return "instr(" + column + ", " + ph + ") > 0"
}

func (sqliteDialect) UniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (sqliteDialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL UNIQUE,
			release_date TEXT NOT NULL,
			cost         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_id     INTEGER NOT NULL REFERENCES movies (id) ON DELETE CASCADE,
			order_time   TEXT NOT NULL,
			participants INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_movie_id ON orders (movie_id)`,
	}
}
