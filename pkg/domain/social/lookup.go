package social

import (
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// LookupState distinguishes "still loading" from "confirmed absent".
type LookupState int

const (
	LookupPending LookupState = iota
	LookupFound
	LookupAbsent
)

func (s LookupState) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupAbsent:
		return "absent"
	default:
		return "pending"
	}
}

// Lookup is the result of resolving one entity by ID.
type Lookup[T any] struct {
	State LookupState
	Value T
	// NotFound is returned by Err in the absent state.
	NotFound *fgerrors.FitGlueError
}

// Found builds a resolved lookup.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{State: LookupFound, Value: v}
}

// Absent builds a confirmed-absent lookup.
func Absent[T any](notFound *fgerrors.FitGlueError) Lookup[T] {
	return Lookup[T]{State: LookupAbsent, NotFound: notFound}
}

// Err is non-nil only once the entity is confirmed absent.
func (l Lookup[T]) Err() error {
	if l.State != LookupAbsent {
		return nil
	}
	if l.NotFound == nil {
		return fgerrors.ErrInternal.WithMessage("entity not found")
	}
	return l.NotFound
}
