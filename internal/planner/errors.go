package planner

import (
	"errors"
	"strings"
)

// ErrPlanningGap matches every *GapError via errors.Is.
var ErrPlanningGap = errors.New("planning gap")

// GapError reports a track the policy needs but the file lacks.
type GapError struct {
	// Missing names the absent track types ("video", "audio").
	Missing []string
	Reason  string
}

func (e *GapError) Error() string {
	msg := "planning gap: " + e.Reason
	if len(e.Missing) > 0 {
		msg += " (missing " + strings.Join(e.Missing, ", ") + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrPlanningGap) succeed for any *GapError.
func (e *GapError) Is(target error) bool { return target == ErrPlanningGap }
