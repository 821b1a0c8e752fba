package arrowops

import "errors"

var (
	ErrNoDataLeft      = errors.New("no data left")
	ErrSchemasNotEqual = errors.New("schemas not equal")
	ErrWriterClosed    = errors.New("writer closed")
)
