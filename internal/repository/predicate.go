package repository

import (
	"strings"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// Op is the comparison a Clause performs.
type Op int

const (
	OpEqual    Op = iota // column = value
	OpContains           // column contains the string value, case preserving
	OpIn                 // column IN (values...); used for relationship loads
)

// Clause is one condition over a single column.
type Clause struct {
	Column string
	Op     Op
	Value  any   // OpEqual, OpContains
	Values []any // OpIn
}

func Equal(column string, v any) Clause { return Clause{Column: column, Op: OpEqual, Value: v} }

func Contains(column, s string) Clause { return Clause{Column: column, Op: OpContains, Value: s} }

func In(column string, vs ...any) Clause { return Clause{Column: column, Op: OpIn, Values: vs} }

// Predicate is a conjunction of clauses.  The zero value matches every row.
// Predicates are inert values: the store renders them into SQL through its
// Dialect, so the same predicate works against every supported engine.
type Predicate struct {
	clauses []Clause
}

// All returns the predicate that matches every row.
func All() Predicate { return Predicate{} }

// And returns a new predicate with cs appended.  p is not modified.
func (p Predicate) And(cs ...Clause) Predicate {
	out := make([]Clause, 0, len(p.clauses)+len(cs))
	out = append(out, p.clauses...)
	out = append(out, cs...)
	return Predicate{clauses: out}
}

// Clauses returns a copy of the clauses in evaluation order.
func (p Predicate) Clauses() []Clause {
	return append([]Clause(nil), p.clauses...)
}

// IsAll reports whether p places no constraint.
func (p Predicate) IsAll() bool { return len(p.clauses) == 0 }

// render builds the WHERE condition and its arguments.  start is the index
// of the first placeholder so callers can append further arguments.
func (p Predicate) render(d Dialect, start int) (string, []any) {
	if len(p.clauses) == 0 {
		return "1=1", nil
	}
	where := make([]string, 0, len(p.clauses))
	args := make([]any, 0, len(p.clauses))
	n := start
	for _, c := range p.clauses {
		switch c.Op {
		case OpContains:
			where = append(where, d.Contains(c.Column, d.Placeholder(n)))
			args = append(args, c.Value)
			n++
		case OpIn:
			if len(c.Values) == 0 {
				where = append(where, "1=0")
				continue
			}
			phs := make([]string, len(c.Values))
			for i, v := range c.Values {
				phs[i] = d.Placeholder(n)
				args = append(args, v)
				n++
			}
			where = append(where, c.Column+" IN ("+strings.Join(phs, ", ")+")")
		default:
			where = append(where, c.Column+" = "+d.Placeholder(n))
			args = append(args, c.Value)
			n++
		}
	}
	return strings.Join(where, " AND "), args
}

// Column names shared by the predicate builders and the table mappings.
const (
	ColID = "id"

	ColMovieName        = "name"
	ColMovieReleaseDate = "release_date"
	ColMovieCost        = "cost"

	ColOrderMovieID      = "movie_id"
	ColOrderTime         = "order_time"
	ColOrderParticipants = "participants"
)

// MoviePredicate turns a sparse movie search into a single predicate:
// name is a substring match, cost and release date are exact matches.
func MoviePredicate(c model.MovieCriteria) Predicate {
	p := All()
	if c.Name != nil {
		p = p.And(Contains(ColMovieName, *c.Name))
	}
	if c.Cost != nil {
		p = p.And(Equal(ColMovieCost, *c.Cost))
	}
	if c.ReleaseDate != nil {
		p = p.And(Equal(ColMovieReleaseDate, *c.ReleaseDate))
	}
	return p
}

// OrderPredicate turns a sparse order search into a single predicate of
// exact matches.
func OrderPredicate(c model.OrderCriteria) Predicate {
	p := All()
	if c.MovieID != nil {
		p = p.And(Equal(ColOrderMovieID, keyArg(*c.MovieID)))
	}
	if c.OrderTime != nil {
		p = p.And(Equal(ColOrderTime, *c.OrderTime))
	}
	if c.Participants != nil {
		p = p.And(Equal(ColOrderParticipants, *c.Participants))
	}
	return p
}

// keyArg converts a surrogate key into a bind argument.  Keys are passed as
// int64 because not every driver accepts uint64 parameters.
func keyArg(id uint64) any { return int64(id) }
