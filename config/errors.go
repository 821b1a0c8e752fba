package config

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidDelimiter = errors.New("invalid delimiter")
)
