package analytics

import "errors"

var (
	ErrUnknownEventType = errors.New("unknown event type")

	ErrInvalidEvent = errors.New("invalid event")
)
