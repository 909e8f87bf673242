package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Mapping describes how an entity type maps onto a table with a surrogate
// "id" key.  Columns lists the non-key columns; Values must return the
// entity's values in the same order and Scan must read id followed by
// Columns.
type Mapping[T any] struct {
	Table   string
	Columns []string
	Values  func(e *T) []any
	Scan    func(s RowScanner, e *T) error
	Key     func(e *T) *uint64
}

// Table is the generic entity store for one mapping.  It holds no
// connection; Bind attaches it to a transaction.
type Table[T any] struct {
	m       Mapping[T]
	dialect Dialect
	cols    string // "id, c1, c2, ..." for SELECT lists
}

// NewTable builds a table for the given dialect and mapping.
func NewTable[T any](d Dialect, m Mapping[T]) *Table[T] {
	return &Table[T]{
		m:       m,
		dialect: d,
		cols:    ColID + ", " + strings.Join(m.Columns, ", "),
	}
}

// Bind returns a repository that runs every statement on q.
func (t *Table[T]) Bind(q Querier) *Repo[T] {
	return &Repo[T]{t: t, q: q}
}

// Repo is a Table bound to a Querier, normally the current transaction.
type Repo[T any] struct {
	t *Table[T]
	q Querier
}

// FindByKey loads the row with the given id or returns ErrNotFound.
func (r *Repo[T]) FindByKey(ctx context.Context, id uint64) (*T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", r.t.cols, r.t.m.Table, ColID, r.t.dialect.Placeholder(1))
	e := new(T)
	if err := r.t.m.Scan(r.q.QueryRowContext(ctx, q, keyArg(id)), e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s %d: %w", r.t.m.Table, id, err)
	}
	return e, nil
}

// ExistsByKey reports whether a row with the given id exists.
func (r *Repo[T]) ExistsByKey(ctx context.Context, id uint64) (bool, error) {
	return r.ExistsWhere(ctx, All().And(Equal(ColID, keyArg(id))))
}

// ExistsByField reports whether any row has column equal to v.
func (r *Repo[T]) ExistsByField(ctx context.Context, column string, v any) (bool, error) {
	if !r.t.hasColumn(column) {
		return false, fmt.Errorf("unknown column %q on %s", column, r.t.m.Table)
	}
	return r.ExistsWhere(ctx, All().And(Equal(column, v)))
}

// ExistsWhere reports whether any row matches p.
func (r *Repo[T]) ExistsWhere(ctx context.Context, p Predicate) (bool, error) {
	where, args := p.render(r.t.dialect, 1)
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", r.t.m.Table, where)
	var one int
	if err := r.q.QueryRowContext(ctx, q, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists %s: %w", r.t.m.Table, err)
	}
	return true, nil
}

// Save inserts e when its key is zero and assigns the generated key;
// otherwise it overwrites every non-key column of the existing row.
func (r *Repo[T]) Save(ctx context.Context, e *T) error {
	key := r.t.m.Key(e)
	if *key == 0 {
		return r.insert(ctx, e, key)
	}
	sets := make([]string, len(r.t.m.Columns))
	for i, c := range r.t.m.Columns {
		sets[i] = c + " = " + r.t.dialect.Placeholder(i+1)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		r.t.m.Table, strings.Join(sets, ", "), ColID, r.t.dialect.Placeholder(len(sets)+1))
	args := append(r.t.m.Values(e), keyArg(*key))
	// RowsAffected is not checked: MySQL reports 0 for an UPDATE that
	// leaves the row unchanged, which is a legal no-op patch.
	if _, err := r.q.ExecContext(ctx, q, args...); err != nil {
		return r.writeErr(fmt.Sprintf("update %s %d", r.t.m.Table, *key), err)
	}
	return nil
}

func (r *Repo[T]) insert(ctx context.Context, e *T, key *uint64) error {
	phs := make([]string, len(r.t.m.Columns))
	for i := range r.t.m.Columns {
		phs[i] = r.t.dialect.Placeholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.t.m.Table, strings.Join(r.t.m.Columns, ", "), strings.Join(phs, ", "))
	if r.t.dialect.ReturningID() {
		var id int64
		if err := r.q.QueryRowContext(ctx, q+" RETURNING "+ColID, r.t.m.Values(e)...).Scan(&id); err != nil {
			return r.writeErr("insert "+r.t.m.Table, err)
		}
		*key = uint64(id)
		return nil
	}
	res, err := r.q.ExecContext(ctx, q, r.t.m.Values(e)...)
	if err != nil {
		return r.writeErr("insert "+r.t.m.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert %s: last insert id: %w", r.t.m.Table, err)
	}
	*key = uint64(id)
	return nil
}

// writeErr wraps a failed write, classifying unique violations as
// ErrDuplicate while keeping the driver error in the message.
func (r *Repo[T]) writeErr(op string, err error) error {
	if r.t.dialect.UniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DeleteByKey removes the row with the given id or returns ErrNotFound.
func (r *Repo[T]) DeleteByKey(ctx context.Context, id uint64) error {
	n, err := r.DeleteWhere(ctx, All().And(Equal(ColID, keyArg(id))))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes every row matching p and returns how many went.
func (r *Repo[T]) DeleteWhere(ctx context.Context, p Predicate) (int64, error) {
	where, args := p.render(r.t.dialect, 1)
	res, err := r.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", r.t.m.Table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", r.t.m.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: rows affected: %w", r.t.m.Table, err)
	}
	return n, nil
}

// QueryAll returns every row matching p ordered by id.
func (r *Repo[T]) QueryAll(ctx context.Context, p Predicate) ([]T, error) {
	where, args := p.render(r.t.dialect, 1)
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", r.t.cols, r.t.m.Table, where, ColID)
	return r.scanAll(ctx, q, args)
}

// QueryPage returns the zero-based page of rows matching p ordered by id,
// together with the total number of matching rows.
func (r *Repo[T]) QueryPage(ctx context.Context, p Predicate, page, size int) (*model.Page[T], error) {
	if page < 0 || size < 1 || page > math.MaxInt/size {
		return nil, fmt.Errorf("invalid page request: page=%d size=%d", page, size)
	}
	where, args := p.render(r.t.dialect, 1)

	var total int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.t.m.Table, where)
	if err := r.q.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count %s: %w", r.t.m.Table, err)
	}

	dataSQL := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		r.t.cols, r.t.m.Table, where, ColID,
		r.t.dialect.Placeholder(len(args)+1), r.t.dialect.Placeholder(len(args)+2))
	argsData := append(append([]any{}, args...), size, page*size)

	items, err := r.scanAll(ctx, dataSQL, argsData)
	if err != nil {
		return nil, err
	}
	return model.NewPage(items, page, size, total), nil
}

func (r *Repo[T]) scanAll(ctx context.Context, q string, args []any) ([]T, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.t.m.Table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var e T
		if err := r.t.m.Scan(rows, &e); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.t.m.Table, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.t.m.Table, err)
	}
	return out, nil
}

func (t *Table[T]) hasColumn(c string) bool {
	if c == ColID {
		return true
	}
	for _, col := range t.m.Columns {
		if col == c {
			return true
		}
	}
	return false
}
