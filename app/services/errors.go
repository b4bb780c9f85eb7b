package services

import (
	"errors"
	"fmt"

	"listify/app/models"
)

// Fault is a backend failure: lost connectivity, a violated constraint, a
// failed commit. The unit of work it happened in has been rolled back.
type Fault struct {
	Op  string
	Err error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// fault wraps err as a Fault unless it is already one or is an expected
// outcome (not found, invalid kind).
func fault(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrInvalidKind) {
		return err
	}
	return &Fault{Op: op, Err: err}
}
