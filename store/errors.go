package store

import "errors"

// ErrNotFound is returned by single-row accessors when no row matches the
// requested id.
var ErrNotFound = errors.New("store: not found")
