package repository

import "github.com/iliyamo/cinema-catalog/internal/model"

// movieMapping maps model.Movie onto the movies table.  Orders is an
// expansion loaded separately and is never persisted through this mapping.
var movieMapping = Mapping[model.Movie]{
	Table:   "movies",
	Columns: []string{ColMovieName, ColMovieReleaseDate, ColMovieCost},
	Values: func(m *model.Movie) []any {
		return []any{m.Name, m.ReleaseDate, m.Cost}
	},
	Scan: func(s RowScanner, m *model.Movie) error {
		return s.Scan(&m.ID, &m.Name, &m.ReleaseDate, &m.Cost)
	},
	Key: func(m *model.Movie) *uint64 { return &m.ID },
}

var orderMapping = Mapping[model.Order]{
	Table:   "orders",
	Columns: []string{ColOrderMovieID, ColOrderTime, ColOrderParticipants},
	Values: func(o *model.Order) []any {
		return []any{keyArg(o.MovieID), o.OrderTime, o.Participants}
	},
	Scan: func(s RowScanner, o *model.Order) error {
		return s.Scan(&o.ID, &o.MovieID, &o.OrderTime, &o.Participants)
	},
	Key: func(o *model.Order) *uint64 { return &o.ID },
}

// OrdersOfMovies selects every order that belongs to one of the given movies.
func OrdersOfMovies(movieIDs ...uint64) Predicate {
	args := make([]any, len(movieIDs))
	for i, id := range movieIDs {
		args[i] = keyArg(id)
	}
	return All().And(In(ColOrderMovieID, args...))
}
