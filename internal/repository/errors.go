// Package repository is the entity store: keyed CRUD and predicate-based
// paged queries over database/sql.  It knows nothing about validation;
// callers decide what a missing row or a duplicate means.
package repository

import "errors"

// ErrNotFound is returned when a row addressed by key does not exist.
// Callers translate it into their own domain error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate key")
