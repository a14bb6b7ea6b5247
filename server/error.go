package server

import "errors"

var (
	errInvalidState = errors.New("invalid state")
	errDestroyed    = errors.New("engine destroyed")
)

// IsInvalidState returns true if the cause of the error is an invalid initial
// state. This can be for example starting an engine that is already running,
// or shutting down a connector that has stopped.
func IsInvalidState(err error) bool {
	return errors.Is(err, errInvalidState)
}

// IsDestroyed returns true if the error was returned by an engine that has
// been destroyed.
func IsDestroyed(err error) bool {
	return errors.Is(err, errDestroyed)
}
