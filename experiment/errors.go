package experiment

import (
	"errors"
	"fmt"
)

// ErrNoOutputPattern is returned by OpenOutput when the run was started
// without output filename options.
var ErrNoOutputPattern = errors.New("output filename pattern not enabled")

// StartupError reports a stream option whose path could not be opened.
type StartupError struct {
	Option string
	Path   string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("option --%s: %s: %v", e.Option, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
