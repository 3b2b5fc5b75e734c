package probe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProbeFailed matches every *Error via errors.Is.
var ErrProbeFailed = errors.New("probe failed")

// Error reports an ffprobe run that exited non-zero or produced output
// that could not be parsed. Stderr holds whatever ffprobe printed.
type Error struct {
	Path   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffprobe %q: %v", e.Path, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProbeFailed) succeed for any *Error.
func (e *Error) Is(target error) bool { return target == ErrProbeFailed }
