package model

// Movie is a screening offered by the catalog.  Movies are created and
// mutated only through the movie service; the store assigns ID.
//
// Fields:
//
//	ID          – primary key identifier, immutable once set.
//	Name        – unique display name of the movie.
//	ReleaseDate – calendar date the movie is released.
//	Cost        – ticket cost, always strictly positive.
//	Orders      – orders placed against this movie.  This is a
//	              read-only expansion; orders.movie_id is the real
//	              foreign key.
type Movie struct {
	ID          uint64  // movies.id
	Name        string  // movies.name
	ReleaseDate Date    // movies.release_date
	Cost        int     // movies.cost
	Orders      []Order // orders WHERE movie_id = id
}

// MovieInput carries the caller-supplied fields of a movie.  Every field
// is optional: create requires Name, ReleaseDate and Cost while update
// requires ID and applies only the fields that are set.
type MovieInput struct {
	ID          *uint64
	Name        *string
	ReleaseDate *Date
	Cost        *int
}

// MovieCriteria is a sparse movie search.  Nil fields add no constraint.
type MovieCriteria struct {
	Name        *string // substring of movies.name, case preserving
	Cost        *int
	ReleaseDate *Date
}
