package dataops

import "errors"

var (
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrSchemasNotEqual     = errors.New("schemas not equal")
	ErrDataTypesNotEqual   = errors.New("data types not equal")
)
