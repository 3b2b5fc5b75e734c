// Package check provides system diagnostics (the check command) and
// pre-flight dependency validation (CheckDeps) for ffmpeg, ffprobe and the
// libx264, AAC and LAME encoders.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/backmassage/reelfix/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found")
	ErrFFprobeNotFound = errors.New("ffprobe not found")
	ErrEncoderFailed   = errors.New("encoder test failed")
)

// EncoderError names the encoder whose test encode failed.
type EncoderError struct {
	Encoder string
	Err     error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("%s test encode failed: %v", e.Encoder, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }

func (e *EncoderError) Is(target error) bool { return target == ErrEncoderFailed }

// testTimeout bounds every probe command run by this package.
const testTimeout = 20 * time.Second

// Logger is the part of logging.Logger that RunCheck writes to.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}

// encoderTest is one short lavfi encode that must succeed for a feature
// to work.
type encoderTest struct {
	name    string
	feature string
	args    []string
}

var encoderTests = []encoderTest{
	{
		name:    "libx264",
		feature: "compatibility re-encode (H.264 High, yuv420p)",
		args: []string{
			"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
			"-c:v", "libx264", "-profile:v", "high", "-pix_fmt", "yuv420p",
			"-f", "null", "-",
		},
	},
	{
		name:    "aac",
		feature: "audio re-encode",
		args: []string{
			"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
			"-c:a", "aac", "-f", "null", "-",
		},
	},
	{
		name:    "libmp3lame",
		feature: "MP3 audio extraction",
		args: []string{
			"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
			"-c:a", "libmp3lame", "-f", "null", "-",
		},
	},
}

// RunCheck runs the interactive check flow: prints the ffmpeg and ffprobe
// versions, the available hardware decoders and the result of each test
// encode. It reports every problem rather than stopping at the first one
// and returns false if any required piece is missing.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")
	ok := true

	if !checkVersion(ctx, cfg.FFmpegBin, "ffmpeg", log) {
		// Nothing else can run without ffmpeg.
		return false
	}
	if !checkVersion(ctx, cfg.FFprobeBin, "ffprobe", log) {
		ok = false
	}
	checkHWAccels(ctx, cfg.FFmpegBin, log)

	for _, tc := range encoderTests {
		if err := runTest(ctx, cfg.FFmpegBin, tc); err != nil {
			log.Error("%s: %v", tc.feature, err)
			ok = false
			continue
		}
		log.Success("%s works (%s)", tc.name, tc.feature)
	}
	return ok
}

// CheckDeps is the pre-flight validation: both tools must resolve and
// every encoder test must pass. It returns the first failure.
func CheckDeps(ctx context.Context, cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFmpegBin); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, cfg.FFmpegBin)
	}
	if _, err := exec.LookPath(cfg.FFprobeBin); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, cfg.FFprobeBin)
	}
	for _, tc := range encoderTests {
		if err := runTest(ctx, cfg.FFmpegBin, tc); err != nil {
			return err
		}
	}
	return nil
}

// checkVersion verifies bin resolves and logs the first line of -version.
func checkVersion(ctx context.Context, bin, name string, log Logger) bool {
	if _, err := exec.LookPath(bin); err != nil {
		log.Error("%s not found (%s)", name, bin)
		return false
	}
	out, err := output(ctx, bin, "-version")
	if err != nil {
		log.Warn("%s found but -version failed: %v", name, err)
		return false
	}
	firstLine := strings.TrimSpace(out)
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("%s: %s", name, firstLine)
	return true
}

// checkHWAccels lists the hardware decoders ffmpeg was built with. The
// planner passes -hwaccel auto, so none of them is required.
func checkHWAccels(ctx context.Context, bin string, log Logger) {
	out, err := output(ctx, bin, "-hide_banner", "-hwaccels")
	if err != nil {
		log.Warn("Could not list hardware accelerators: %v", err)
		return
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		names = append(names, line)
	}
	if len(names) == 0 {
		log.Info("Hardware decoding: none (software decode)")
		return
	}
	log.Info("Hardware decoding: %s", strings.Join(names, ", "))
}

func runTest(ctx context.Context, bin string, tc encoderTest) error {
	args := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, tc.args...)
	if out, err := output(ctx, bin, args...); err != nil {
		if msg := strings.TrimSpace(out); msg != "" {
			err = fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return &EncoderError{Encoder: tc.name, Err: err}
	}
	return nil
}

// output runs a short command with the package timeout and returns its
// combined output.
func output(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

func lastLine(s string) string {
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
