package state

import "errors"

// ErrNotFound is returned when a state name is not registered.
var ErrNotFound = errors.New("state not found")

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("state already registered")

// ErrFrozen is returned when registering into a frozen tree.
var ErrFrozen = errors.New("state tree is frozen")

// ErrMissingParent is returned when a state's parent is neither
// registered nor part of the same registration batch.
var ErrMissingParent = errors.New("parent state not registered")

// ErrCyclicParent is returned when explicit Parent references form a loop.
var ErrCyclicParent = errors.New("cyclic parent chain")

// ErrInvalidName is returned for empty names or names carrying glob
// metacharacters, which are reserved for hook criteria.
var ErrInvalidName = errors.New("invalid state name")
