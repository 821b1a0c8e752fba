package operations

import "errors"

var (
	ErrInvalidPattern  = errors.New("invalid input pattern")
	ErrOutputCollision = errors.New("output path used by more than one input")
)
