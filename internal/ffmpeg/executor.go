package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTailChars is the size of the log tail shown while a command runs.
	DefaultTailChars = 2000
	// DefaultMaxLogBytes bounds the log kept for one execution.
	DefaultMaxLogBytes = 4 << 20

	maxLineBytes = 1 << 20
	waitDelay    = 5 * time.Second
)

// Result holds the outcome of a single command invocation.
type Result struct {
	ExitCode  int
	Log       string
	Succeeded bool
	Elapsed   time.Duration
	// Truncated is set when the log exceeded MaxLogBytes and its head was
	// dropped.
	Truncated bool
}

// Executor runs commands one at a time per call. The zero value is usable
// and applies the defaults.
type Executor struct {
	// TailChars is the number of characters passed as Progress.Tail.
	TailChars int
	// MaxLogBytes bounds Result.Log.
	MaxLogBytes int
	// Encoding names the fallback decoder for output that is not valid
	// UTF-8 (WHATWG label, e.g. "gbk"). Empty picks the platform default.
	Encoding string
	// Logger receives start/finish events at debug level.
	Logger zerolog.Logger
}

// NewExecutor returns an Executor with the default bounds and a silent
// logger.
func NewExecutor() *Executor {
	return &Executor{
		TailChars:   DefaultTailChars,
		MaxLogBytes: DefaultMaxLogBytes,
		Logger:      zerolog.Nop(),
	}
}

// Execute runs cmd to completion. onProgress may be nil.
//
// The returned Result is always populated. A non-zero exit, a start
// failure, or cancellation of ctx additionally returns *ExecutionError.
func (e *Executor) Execute(ctx context.Context, cmd Command, onProgress ProgressFunc) (Result, error) {
	if cmd.IsZero() {
		return Result{ExitCode: -1}, &ExecutionError{ExitCode: -1, Err: fmt.Errorf("%w: empty command", ErrNotStarted)}
	}
	args := cmd.Args()

	log := newLogBuffer(e.MaxLogBytes, e.TailChars)
	dec := newLineDecoder(e.Encoding)

	proc := exec.CommandContext(ctx, args[0], args[1:]...)
	setProcessGroup(proc)
	proc.WaitDelay = waitDelay

	// One pipe for both streams: exec shares the descriptor when Stdout
	// and Stderr are the same writer.
	pr, pw := io.Pipe()
	proc.Stdout = pw
	proc.Stderr = pw

	e.Logger.Debug().Str("cmd", cmd.String()).Msg("exec start")
	start := time.Now()
	if err := proc.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		res := Result{ExitCode: -1, Elapsed: time.Since(start)}
		return res, &ExecutionError{Program: args[0], ExitCode: -1, Err: fmt.Errorf("%w: %w", ErrNotStarted, err)}
	}

	var (
		g       errgroup.Group
		waitErr error
	)
	// Producer: the subprocess. Closing the writer after Wait ends the
	// consumer's read loop.
	g.Go(func() error {
		waitErr = proc.Wait()
		return pw.Close()
	})
	// Consumer: line reader feeding the log and the progress callback.
	g.Go(func() error {
		consume(pr, dec, log, cmd.Duration, onProgress)
		return nil
	})
	_ = g.Wait()

	res := Result{
		Log:       log.String(),
		Elapsed:   time.Since(start),
		Truncated: log.truncated,
	}
	if waitErr == nil {
		res.Succeeded = true
		e.Logger.Debug().Dur("elapsed", res.Elapsed).Msg("exec done")
		return res, nil
	}

	res.ExitCode = exitCode(waitErr)
	err := waitErr
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, waitErr)
	}
	e.Logger.Debug().
		Int("exit_code", res.ExitCode).
		Dur("elapsed", res.Elapsed).
		Err(err).
		Msg("exec failed")
	return res, &ExecutionError{
		Program:  args[0],
		ExitCode: res.ExitCode,
		Tail:     log.tail(),
		Err:      err,
	}
}

// consume reads r line by line until EOF. On a read error (for example a
// single line longer than maxLineBytes) the rest of r is drained so the
// producer never blocks on a full pipe.
func consume(r io.ReadCloser, dec *lineDecoder, log *logBuffer, total time.Duration, onProgress ProgressFunc) {
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(scanLinesCR)

	var outTime time.Duration
	for sc.Scan() {
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		line := dec.decode(raw)
		log.appendLine(line)
		if t, ok := parseOutTime(line); ok {
			outTime = t
		}
		if onProgress != nil {
			onProgress(Progress{
				Line:    line,
				Tail:    log.tail(),
				OutTime: outTime,
				Percent: percentOf(outTime, total),
			})
		}
	}
	if err := sc.Err(); err != nil {
		log.appendLine("[output reader: " + err.Error() + "]")
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanLinesCR is bufio.ScanLines with '\r' accepted as a terminator too.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
