package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every lookup of an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKind is matched when an element type is not one of the four kinds.
	ErrInvalidKind = errors.New("invalid element type")
)

// NotFoundError names the kind and id that could not be found.
type NotFoundError struct {
	Kind Kind
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidKindError carries the rejected element type as the client sent it.
type InvalidKindError struct {
	Value string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid element type: %s", e.Value)
}

func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// ValidationError reports a request body that is well-formed JSON but not
// an acceptable project tree.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}
