package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-catalog/internal/model"
	"github.com/iliyamo/cinema-catalog/internal/repository"
	"github.com/iliyamo/cinema-catalog/internal/repository/repositorytest"
)

func seedMovie(t *testing.T, s *repository.Store, name string, cost int) model.Movie {
	t.Helper()
	m := model.Movie{Name: name, ReleaseDate: model.NewDate(2024, time.January, 1), Cost: cost}
	require.NoError(t, s.Tx(context.Background(), false, func(tx *repository.Tx) error {
		return tx.Movies.Save(context.Background(), &m)
	}))
	require.NotZero(t, m.ID)
	return m
}

func TestStore_SaveFindUpdate(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	m := seedMovie(t, s, "Dune", 10)

	require.NoError(t, s.Tx(ctx, true, func(tx *repository.Tx) error {
		got, err := tx.Movies.FindByKey(ctx, m.ID)
		require.NoError(t, err)
		require.Equal(t, m, *got)

		_, err = tx.Movies.FindByKey(ctx, m.ID+100)
		require.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	}))

	m.Cost = 12
	require.NoError(t, s.Tx(ctx, false, func(tx *repository.Tx) error {
		return tx.Movies.Save(ctx, &m)
	}))
	require.NoError(t, s.Tx(ctx, true, func(tx *repository.Tx) error {
		got, err := tx.Movies.FindByKey(ctx, m.ID)
		require.NoError(t, err)
		require.Equal(t, 12, got.Cost)
		return nil
	}))
}

func TestStore_SaveDuplicateName(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	seedMovie(t, s, "Dune", 10)
	other := seedMovie(t, s, "Arrival", 8)

	err := s.Tx(ctx, false, func(tx *repository.Tx) error {
		return tx.Movies.Save(ctx, &model.Movie{Name: "Dune", ReleaseDate: model.NewDate(2024, time.May, 1), Cost: 3})
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	other.Name = "Dune"
	err = s.Tx(ctx, false, func(tx *repository.Tx) error {
		return tx.Movies.Save(ctx, &other)
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestStore_Exists(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	m := seedMovie(t, s, "Dune", 10)

	require.NoError(t, s.Tx(ctx, true, func(tx *repository.Tx) error {
		ok, err := tx.Movies.ExistsByKey(ctx, m.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = tx.Movies.ExistsByField(ctx, repository.ColMovieName, "Dune")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = tx.Movies.ExistsByField(ctx, repository.ColMovieName, "dune")
		require.NoError(t, err)
		require.False(t, ok, "name lookups are exact")

		_, err = tx.Movies.ExistsByField(ctx, "name; DROP TABLE movies", "x")
		require.Error(t, err)
		return nil
	}))
}

func TestStore_QueryPage(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	for _, name := range []string{"Dune", "Dune: Part Two", "Arrival", "Blade Runner"} {
		seedMovie(t, s, name, 10)
	}

	require.NoError(t, s.Tx(ctx, true, func(tx *repository.Tx) error {
		all, err := tx.Movies.QueryAll(ctx, repository.All())
		require.NoError(t, err)
		require.Len(t, all, 4)

		page, err := tx.Movies.QueryPage(ctx, repository.All(), 0, 3)
		require.NoError(t, err)
		require.Len(t, page.Content, 3)
		require.EqualValues(t, 4, page.TotalElements)
		require.Equal(t, 2, page.TotalPages)
		require.Equal(t, all[:3], page.Content)

		page, err = tx.Movies.QueryPage(ctx, repository.All(), 1, 3)
		require.NoError(t, err)
		require.Equal(t, all[3:], page.Content)

		name := "Dune"
		page, err = tx.Movies.QueryPage(ctx, repository.MoviePredicate(model.MovieCriteria{Name: &name}), 0, 10)
		require.NoError(t, err)
		require.Len(t, page.Content, 2)

		lower := "dune"
		page, err = tx.Movies.QueryPage(ctx, repository.MoviePredicate(model.MovieCriteria{Name: &lower}), 0, 10)
		require.NoError(t, err)
		require.Empty(t, page.Content, "substring match is case preserving")

		_, err = tx.Movies.QueryPage(ctx, repository.All(), -1, 10)
		require.Error(t, err)
		_, err = tx.Movies.QueryPage(ctx, repository.All(), math.MaxInt/2+1, 2)
		require.Error(t, err)
		return nil
	}))
}

func TestStore_DeleteWhereAndByKey(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	m := seedMovie(t, s, "Dune", 10)

	require.NoError(t, s.Tx(ctx, false, func(tx *repository.Tx) error {
		for i := 1; i <= 3; i++ {
			o := model.Order{MovieID: m.ID, OrderTime: model.NewDate(2024, time.June, i), Participants: i}
			require.NoError(t, tx.Orders.Save(ctx, &o))
		}
		return nil
	}))

	require.NoError(t, s.Tx(ctx, false, func(tx *repository.Tx) error {
		orders, err := tx.Orders.QueryAll(ctx, repository.OrdersOfMovies(m.ID))
		require.NoError(t, err)
		require.Len(t, orders, 3)

		n, err := tx.Orders.DeleteWhere(ctx, repository.OrdersOfMovies(m.ID))
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		require.NoError(t, tx.Movies.DeleteByKey(ctx, m.ID))
		require.ErrorIs(t, tx.Movies.DeleteByKey(ctx, m.ID), repository.ErrNotFound)
		return nil
	}))
}

func TestStore_TxRollsBackOnError(t *testing.T) {
	s := repositorytest.NewStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx(ctx, false, func(tx *repository.Tx) error {
		m := model.Movie{Name: "Ghost", ReleaseDate: model.NewDate(2024, time.January, 1), Cost: 1}
		require.NoError(t, tx.Movies.Save(ctx, &m))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.Tx(ctx, true, func(tx *repository.Tx) error {
		ok, err := tx.Movies.ExistsByField(ctx, repository.ColMovieName, "Ghost")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}
