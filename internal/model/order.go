package model

// Order is a reservation of a number of participants against a movie.
//
// Fields:
//
//	ID           – primary key identifier.
//	MovieID      – movie being reserved; must reference an existing movie.
//	OrderTime    – date the order was placed.
//	Participants – number of people, always strictly positive.
type Order struct {
	ID           uint64 // orders.id
	MovieID      uint64 // orders.movie_id
	OrderTime    Date   // orders.order_time
	Participants int    // orders.participants
}

// OrderInput carries the caller-supplied fields of an order.  On create
// OrderTime is ignored and replaced with the current date.
type OrderInput struct {
	ID           *uint64
	MovieID      *uint64
	OrderTime    *Date
	Participants *int
}

// OrderCriteria is a sparse order search.  Nil fields add no constraint.
type OrderCriteria struct {
	MovieID      *uint64
	OrderTime    *Date
	Participants *int
}
