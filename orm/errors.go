package orm

import "errors"

// ErrNotFound is returned when a query expects exactly one row but finds none.
var ErrNotFound = errors.New("orm: not found")

// ErrInvalidField is returned when a field name does not match any column
// or relation of the model. Callers match it with errors.Is; the wrapped
// message names the offending field.
var ErrInvalidField = errors.New("orm: invalid field")

// ErrMissingPrimaryKey is returned when an operation needs the primary key
// value of a model and none could be extracted.
var ErrMissingPrimaryKey = errors.New("orm: primary key value is required")

// ErrUntracked is returned when Only or Defer is used on a model that does
// not embed State. Without State a later Update could not tell unloaded
// columns from zero values and would overwrite them.
var ErrUntracked = errors.New("orm: partial load requires a model embedding orm.State")
