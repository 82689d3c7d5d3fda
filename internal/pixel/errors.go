package pixel

import "errors"

var (
	ErrPixelNotFound = errors.New("pixel not found")

	ErrSessionNotFound = errors.New("session not found")

	ErrInvalidInput = errors.New("invalid input")
)
