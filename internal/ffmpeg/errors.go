package ffmpeg

import (
	"errors"
	"fmt"
)

// ErrExecutionFailed matches every *ExecutionError via errors.Is.
var ErrExecutionFailed = errors.New("execution failed")

// ErrNotStarted is wrapped by an *ExecutionError whose process never ran:
// an empty command or a binary that could not be started.
var ErrNotStarted = errors.New("not started")

// ExecutionError reports a command that could not be started, exited
// non-zero, or was cancelled. ExitCode is -1 when the process never ran or
// was killed by a signal; errors.Is(err, ErrNotStarted) tells the two
// apart. Tail is the last part of the captured log, verbatim.
type ExecutionError struct {
	Program  string
	ExitCode int
	Tail     string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with code %d: %v", e.Program, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Program, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExecutionFailed) succeed for any *ExecutionError.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecutionFailed }
