// Package repair applies automated fixes for classified diagnostic errors.
//
// Fixes live in an ordered strategy table keyed by signature ID. The first
// detected error that has a strategy is fixed; one command per call.
// Signatures without a strategy are reported as *UnsupportedError rather
// than silently skipped.
package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/ffmpeg"
)

var (
	// ErrUnsupportedRepair matches every *UnsupportedError via errors.Is.
	ErrUnsupportedRepair = errors.New("no automated repair for detected errors")
	// ErrNothingToRepair is returned when no errors were detected.
	ErrNothingToRepair = errors.New("nothing to repair")
)

// UnsupportedError lists the signatures that were detected but have no
// strategy.
type UnsupportedError struct {
	Signatures []string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnsupportedRepair, strings.Join(e.Signatures, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedRepair) succeed for any *UnsupportedError.
func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupportedRepair }

// Strategy is one named fix.
type Strategy struct {
	Name      string
	Signature string
	// Build returns the repair command for in → out using ffmpeg binary bin.
	Build func(bin, in, out string) ffmpeg.Command
}

var strategies = []Strategy{
	{Name: "faststart-remux", Signature: diagnose.SigMetadataMissing, Build: faststartRemux},
}

// faststartRemux stream copies everything and writes the moov atom at
// the head of the file.
func faststartRemux(bin, in, out string) ffmpeg.Command {
	return ffmpeg.NewCommand([]string{
		bin, "-hide_banner", "-nostdin", "-y",
		"-i", in,
		"-c", "copy",
		"-movflags", "faststart",
		out,
	}, 0)
}

// Lookup returns the strategy for a signature ID.
func Lookup(signature string) (Strategy, bool) {
	for _, s := range strategies {
		if s.Signature == signature {
			return s, true
		}
	}
	return Strategy{}, false
}

// Select picks the strategy for the first detected error that has one.
func Select(detected []diagnose.DetectedError) (Strategy, error) {
	if len(detected) == 0 {
		return Strategy{}, ErrNothingToRepair
	}
	var unsupported []string
	seen := make(map[string]bool)
	for _, d := range detected {
		if s, ok := Lookup(d.Signature); ok {
			return s, nil
		}
		if !seen[d.Signature] {
			seen[d.Signature] = true
			unsupported = append(unsupported, d.Signature)
		}
	}
	return Strategy{}, &UnsupportedError{Signatures: unsupported}
}

// Executor runs one command. *ffmpeg.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd ffmpeg.Command, onProgress ffmpeg.ProgressFunc) (ffmpeg.Result, error)
}

// Result describes the fix that was run.
type Result struct {
	Strategy  string
	Signature string
	Command   ffmpeg.Command
	Exec      ffmpeg.Result
}

// Repairer runs strategies through an executor.
type Repairer struct {
	Exec Executor
	// Binary is the ffmpeg executable. Empty means "ffmpeg".
	Binary string
}

// Repair fixes in → out with the default ffmpeg binary.
func Repair(ctx context.Context, exec Executor, in, out string, detected []diagnose.DetectedError) (*Result, error) {
	r := &Repairer{Exec: exec}
	return r.Repair(ctx, in, out, detected, nil)
}

// Repair selects a strategy for detected and runs it. When the command
// fails the returned Result still carries the execution outcome.
func (r *Repairer) Repair(ctx context.Context, in, out string, detected []diagnose.DetectedError, onProgress ffmpeg.ProgressFunc) (*Result, error) {
	s, err := Select(detected)
	if err != nil {
		return nil, err
	}
	bin := r.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	res := &Result{Strategy: s.Name, Signature: s.Signature, Command: s.Build(bin, in, out)}
	res.Exec, err = r.Exec.Execute(ctx, res.Command, onProgress)
	if err != nil {
		return res, fmt.Errorf("repair %s: %w", s.Name, err)
	}
	return res, nil
}

// Verdict is the coarse outcome of a repair.
type Verdict string

const (
	VerdictImproved      Verdict = "improved"
	VerdictNoImprovement Verdict = "no-improvement"
)

// Assess compares error counts before and after a repair. Fewer errors
// afterwards is reported as improved; equal or more is not. A lower count
// does not prove the file is semantically sound.
func Assess(before, after int) Verdict {
	if after < before {
		return VerdictImproved
	}
	return VerdictNoImprovement
}
