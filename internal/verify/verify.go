// Package verify re-probes a produced file and checks its first video
// stream against a compatibility profile.
package verify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/backmassage/reelfix/internal/probe"
)

// DefaultTimeout bounds the verification probe.
const DefaultTimeout = 10 * time.Second

// Check names, in report order.
const (
	CheckCodec   = "codec_name"
	CheckProfile = "profile"
	CheckPixFmt  = "pix_fmt"
)

// ErrVerificationFailed matches every *Error via errors.Is.
var ErrVerificationFailed = errors.New("verification failed")

// Prober is the part of probe.Prober the verifier needs.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.MediaDescriptor, error)
}

// Profile is the target the first video stream is checked against.
type Profile struct {
	Codec       string
	Profiles    []string
	PixelFormat string
}

// DefaultProfile is H.264 High/Main/Baseline in yuv420p.
func DefaultProfile() Profile {
	return Profile{
		Codec:       "h264",
		Profiles:    []string{"High", "Main", "Baseline"},
		PixelFormat: "yuv420p",
	}
}

// Report holds the per-check outcome. Passed is the AND of all checks;
// Details lists one human-readable line per failed check, in Order.
type Report struct {
	Checks  map[string]bool
	Order   []string
	Passed  bool
	Details []string
	Stream  probe.StreamDescriptor
}

// Error reports a verification that could not produce a trustworthy
// report: the probe failed, timed out, or found no video stream.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verify %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("verify %q: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrVerificationFailed) succeed for any *Error.
func (e *Error) Is(target error) bool { return target == ErrVerificationFailed }

// Verifier bundles the prober, target profile and probe timeout.
type Verifier struct {
	Prober  Prober
	Profile Profile
	// Timeout bounds the probe; zero means DefaultTimeout.
	Timeout time.Duration
}

// Verify checks path against profile with the default timeout.
func Verify(ctx context.Context, p Prober, path string, profile Profile) (*Report, error) {
	v := &Verifier{Prober: p, Profile: profile}
	return v.Verify(ctx, path)
}

// Verify re-probes path and checks its first video stream. A failed or
// timed-out probe is an *Error, never a passing report.
func (v *Verifier) Verify(ctx context.Context, path string) (*Report, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	desc, err := v.Prober.Probe(ctx, path)
	if err != nil {
		reason := "probe failed"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("probe timed out after %s", timeout)
		}
		return nil, &Error{Path: path, Reason: reason, Err: err}
	}

	stream, ok := desc.FirstVideo()
	if !ok {
		return nil, &Error{Path: path, Reason: "output has no video stream"}
	}
	return Check(stream, v.Profile), nil
}

// Check evaluates the three predicates against one stream. Pure.
func Check(s probe.StreamDescriptor, p Profile) *Report {
	r := &Report{
		Checks: make(map[string]bool, 3),
		Order:  []string{CheckCodec, CheckProfile, CheckPixFmt},
		Stream: s,
	}

	r.Checks[CheckCodec] = strings.EqualFold(s.CodecName, p.Codec)
	if !r.Checks[CheckCodec] {
		r.Details = append(r.Details, fmt.Sprintf("codec_name: got %s, want %s", orNone(s.CodecName), p.Codec))
	}

	r.Checks[CheckProfile] = s.Profile != "" && slices.ContainsFunc(p.Profiles, func(want string) bool {
		return strings.EqualFold(want, s.Profile)
	})
	if !r.Checks[CheckProfile] {
		r.Details = append(r.Details, fmt.Sprintf("profile: got %s, want one of %s", orNone(s.Profile), strings.Join(p.Profiles, ", ")))
	}

	r.Checks[CheckPixFmt] = s.PixelFormat == p.PixelFormat
	if !r.Checks[CheckPixFmt] {
		r.Details = append(r.Details, fmt.Sprintf("pix_fmt: got %s, want %s", orNone(s.PixelFormat), p.PixelFormat))
	}

	r.Passed = r.Checks[CheckCodec] && r.Checks[CheckProfile] && r.Checks[CheckPixFmt]
	return r
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
