package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrEntityNotFound is returned when an entity id is not in the pool.
	ErrEntityNotFound = errors.New("entity: not found")

	// ErrInvalidType is returned when an entity type is not recognised.
	ErrInvalidType = errors.New("entity: invalid type")

	// ErrInvalidID is returned when an entity id is empty.
	ErrInvalidID = errors.New("entity: invalid id")
)
