package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestMoviePredicate_EmptyCriteriaMatchesAll(t *testing.T) {
	p := MoviePredicate(model.MovieCriteria{})
	require.True(t, p.IsAll())

	where, args := p.render(MySQL, 1)
	require.Equal(t, "1=1", where)
	require.Empty(t, args)
}

func TestMoviePredicate_ConjunctionPerDialect(t *testing.T) {
	release := model.NewDate(2024, time.January, 1)
	p := MoviePredicate(model.MovieCriteria{
		Name:        ptr("Dune"),
		Cost:        ptr(10),
		ReleaseDate: &release,
	})
	require.Len(t, p.Clauses(), 3)

	cases := []struct {
		dialect Dialect
		where   string
	}{
		{MySQL, "LOCATE(?, name COLLATE utf8mb4_bin) > 0 AND cost = ? AND release_date = ?"},
		{Postgres, "strpos(name, $1) > 0 AND cost = $2 AND release_date = $3"},
		{SQLite, "instr(name, ?) > 0 AND cost = ? AND release_date = ?"},
	}
	for _, tc := range cases {
		where, args := p.render(tc.dialect, 1)
		require.Equal(t, tc.where, where, tc.dialect.Name())
		require.Equal(t, []any{"Dune", 10, release}, args)
	}
}

func TestMoviePredicate_OnlyPresentFields(t *testing.T) {
	p := MoviePredicate(model.MovieCriteria{Cost: ptr(7)})
	where, args := p.render(Postgres, 1)
	require.Equal(t, "cost = $1", where)
	require.Equal(t, []any{7}, args)
}

func TestOrderPredicate(t *testing.T) {
	day := model.NewDate(2024, time.May, 2)
	p := OrderPredicate(model.OrderCriteria{MovieID: ptr(uint64(4)), OrderTime: &day, Participants: ptr(3)})
	where, args := p.render(Postgres, 3)
	require.Equal(t, "movie_id = $3 AND order_time = $4 AND participants = $5", where)
	require.Equal(t, []any{int64(4), day, 3}, args)

	require.True(t, OrderPredicate(model.OrderCriteria{}).IsAll())
}

func TestPredicate_In(t *testing.T) {
	where, args := OrdersOfMovies(1, 2).render(Postgres, 1)
	require.Equal(t, "movie_id IN ($1, $2)", where)
	require.Equal(t, []any{int64(1), int64(2)}, args)

	where, args = OrdersOfMovies().render(MySQL, 1)
	require.Equal(t, "1=0", where)
	require.Empty(t, args)
}

func TestPredicate_AndDoesNotAlias(t *testing.T) {
	base := All().And(Equal("a", 1))
	left := base.And(Equal("b", 2))
	right := base.And(Equal("c", 3))
	require.Len(t, base.Clauses(), 1)
	require.Equal(t, "b", left.Clauses()[1].Column)
	require.Equal(t, "c", right.Clauses()[1].Column)
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]Dialect{"mysql": MySQL, "postgres": Postgres, "pgx": Postgres, "sqlite": SQLite} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		require.Equal(t, want, d)
	}
	_, err := DialectFor("oracle")
	require.Error(t, err)
}

func TestUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert movies: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	require.True(t, MySQL.UniqueViolation(dup))
	require.False(t, MySQL.UniqueViolation(&mysql.MySQLError{Number: 1452}))

	require.True(t, Postgres.UniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, Postgres.UniqueViolation(&pgconn.PgError{Code: "23503"}))

	for _, d := range []Dialect{MySQL, Postgres, SQLite} {
		require.False(t, d.UniqueViolation(errors.New("connection refused")), d.Name())
		require.False(t, d.UniqueViolation(nil), d.Name())
	}
}
