package bootstrap

import "errors"

// InitError is returned when the environment, the service initialization or
// the engine could not be built. The controller remains Destroyed.
type InitError struct {
	Name string
	Err  error
}

func (e *InitError) Error() string {
	return "unable to initialize " + e.Name + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitialization returns true if err was caused by a failed construction
// of the environment, the service or the engine.
func IsInitialization(err error) bool {
	var initErr *InitError
	return errors.As(err, &initErr)
}
