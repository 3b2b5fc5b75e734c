package diagnose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/backmassage/reelfix/internal/ffmpeg"
)

// Executor runs one command. *ffmpeg.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd ffmpeg.Command, onProgress ffmpeg.ProgressFunc) (ffmpeg.Result, error)
}

// Detector runs a decode-only pass over a file and collects the error
// lines ffmpeg reports.
type Detector struct {
	Exec Executor
	// Binary is the ffmpeg executable. Empty means "ffmpeg".
	Binary string
}

// Command returns the detection command for path: decode everything at
// error log level into the null muxer.
func (d *Detector) Command(path string) ffmpeg.Command {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	return ffmpeg.NewCommand([]string{
		bin, "-hide_banner", "-nostdin",
		"-v", "error",
		"-i", path,
		"-f", "null", "-",
	}, 0)
}

// Detect returns the non-empty diagnostic lines for path. A damaged file
// makes ffmpeg exit non-zero or even crash; the lines printed before that
// are still the result. Failing to start ffmpeg, or cancellation, is an
// error.
func (d *Detector) Detect(ctx context.Context, path string) ([]string, error) {
	res, err := d.Exec.Execute(ctx, d.Command(path), nil)
	if err != nil && (errors.Is(err, ffmpeg.ErrNotStarted) || ctx.Err() != nil) {
		return nil, fmt.Errorf("detect %q: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(res.Log, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Diagnose runs Detect and classifies the result.
func (d *Detector) Diagnose(ctx context.Context, path string) ([]DetectedError, error) {
	lines, err := d.Detect(ctx, path)
	if err != nil {
		return nil, err
	}
	return Classify(lines), nil
}
