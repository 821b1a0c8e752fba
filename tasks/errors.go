package tasks

import "errors"

var (
	ErrInvalidPacketType = errors.New("invalid packet type")
	ErrFileClaimFailed   = errors.New("file claim failed")
)
