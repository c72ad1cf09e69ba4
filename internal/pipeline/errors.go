package pipeline

import "errors"

// ErrMissingColumn is returned when a Processor requires a column the
// frame does not have.
var ErrMissingColumn = errors.New("pipeline: required column missing")

// ErrInvalidDateTemplate is returned when a relative date_format's
// template cannot be compiled (missing or malformed {n} placeholder).
var ErrInvalidDateTemplate = errors.New("pipeline: invalid relative date template")
