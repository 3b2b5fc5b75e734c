package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/backmassage/reelfix/internal/testutil"
)

func shell(script string, d time.Duration) Command {
	return NewCommand([]string{"/bin/sh", "-c", script}, d)
}

func TestExecute_MergedOutputAndCRLines(t *testing.T) {
	testutil.RequireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `echo "Input #0, flv, from 'in.flv':"
printf 'frame=  10 time=00:00:01.00 bitrate=1k\rframe=  20 time=00:00:02.00 bitrate=1k\r' >&2
echo "muxing overhead: 0.1%" >&2`

	var seen []Progress
	res, err := NewExecutor().Execute(context.Background(), shell(script, 4*time.Second), func(p Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, 0, res.ExitCode)

	require.Len(t, seen, 4, "stdout line, two \\r-terminated stats lines, final stderr line")
	assert.Equal(t, "Input #0, flv, from 'in.flv':", seen[0].Line)
	assert.Equal(t, time.Second, seen[1].OutTime)
	assert.InDelta(t, 25.0, seen[1].Percent, 0.01)
	assert.Equal(t, 2*time.Second, seen[2].OutTime)
	assert.InDelta(t, 50.0, seen[3].Percent, 0.01, "percent carries over lines without time=")

	assert.Contains(t, res.Log, "Input #0")
	assert.Contains(t, res.Log, "muxing overhead")
	assert.True(t, strings.HasSuffix(seen[3].Tail, "muxing overhead: 0.1%\n"))
}

func TestExecute_NonZeroExit(t *testing.T) {
	testutil.RequireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `echo "in.mp4: Invalid data found when processing input" >&2; exit 1`
	res, err := NewExecutor().Execute(context.Background(), shell(script, 0), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutionFailed))
	assert.False(t, res.Succeeded)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Log, "in.mp4: Invalid data found when processing input")

	var ee *ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.ExitCode)
	assert.Equal(t, "in.mp4: Invalid data found when processing input\n", ee.Tail)
}

func TestExecute_TailIsBounded(t *testing.T) {
	testutil.RequireShell(t)

	// 200 lines of 50 chars each, well past the tail size.
	script := `i=0; while [ $i -lt 200 ]; do echo "line $i xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"; i=$((i+1)); done`
	exec := &Executor{TailChars: 100, MaxLogBytes: 1000}

	var maxTail int
	res, err := exec.Execute(context.Background(), shell(script, 0), func(p Progress) {
		if n := utf8.RuneCountInString(p.Tail); n > maxTail {
			maxTail = n
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 100, maxTail)
	assert.LessOrEqual(t, len(res.Log), 1000)
	assert.True(t, res.Truncated)
	assert.Contains(t, res.Log, "line 199")
	assert.NotContains(t, res.Log, "line 0 ")
}

func TestExecute_InvalidUTF8IsReplaced(t *testing.T) {
	testutil.RequireShell(t)

	exec := &Executor{Encoding: "utf-8"}
	res, err := exec.Execute(context.Background(), shell(`printf 'bad \377\376 bytes\n'`, 0), nil)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(res.Log))
	assert.Contains(t, res.Log, "bad ")
	assert.Contains(t, res.Log, " bytes")
}

func TestExecute_FallbackEncoding(t *testing.T) {
	testutil.RequireShell(t)

	// "你好" in GBK.
	exec := &Executor{Encoding: "gbk"}
	res, err := exec.Execute(context.Background(), shell(`printf '\304\343\272\303\n'`, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, "你好\n", res.Log)
}

func TestExecute_Cancel(t *testing.T) {
	testutil.RequireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := NewExecutor().Execute(ctx, shell(`echo started; sleep 30`, 0), nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Succeeded)
	assert.Contains(t, res.Log, "started")
}

func TestExecute_StartFailure(t *testing.T) {
	res, err := NewExecutor().Execute(context.Background(), NewCommand([]string{"/nonexistent/ffmpeg", "-version"}, 0), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, -1, res.ExitCode)
	assert.False(t, res.Succeeded)
}

func TestExecute_EmptyCommand(t *testing.T) {
	_, err := NewExecutor().Execute(context.Background(), Command{}, nil)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestExecute_SignalIsNotStartFailure(t *testing.T) {
	testutil.RequireShell(t)
	bin := testutil.WriteScript(t, t.TempDir(), "ffmpeg", "echo decoding >&2\nkill -SEGV $$")
	res, err := NewExecutor().Execute(context.Background(), NewCommand([]string{bin}, 0), nil)
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.NotErrorIs(t, err, ErrNotStarted)
	assert.Contains(t, res.Log, "decoding")
}

func TestScanLinesCR(t *testing.T) {
	adv, tok, err := scanLinesCR([]byte("a\rb\n"), false)
	require.NoError(t, err)
	assert.Equal(t, 2, adv)
	assert.Equal(t, "a", string(tok))

	adv, tok, _ = scanLinesCR([]byte("partial"), false)
	assert.Zero(t, adv)
	assert.Nil(t, tok)

	adv, tok, _ = scanLinesCR([]byte("last"), true)
	assert.Equal(t, 4, adv)
	assert.Equal(t, "last", string(tok))
}

func TestParseOutTime(t *testing.T) {
	tests := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		{"frame=1 fps=0 size=0kB time=00:00:00.04 bitrate=N/A", 40 * time.Millisecond, true},
		{"size=1024kB time=01:02:03.50 bitrate=128.0kbits/s", time.Hour + 2*time.Minute + 3500*time.Millisecond, true},
		{"size=N/A time=N/A bitrate=N/A", 0, false},
		{"Stream mapping:", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseOutTime(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestLastRunes(t *testing.T) {
	assert.Equal(t, "abc", lastRunes("abc", 5))
	assert.Equal(t, "好吗", lastRunes("你好吗", 2))
	assert.Equal(t, "", lastRunes("abc", 0))
}

func TestCommand_CopiesAndString(t *testing.T) {
	src := []string{"ffmpeg", "-i", "my clip.flv", "out.mp4"}
	c := NewCommand(src, 0)
	src[0] = "mutated"

	args := c.Args()
	assert.Equal(t, "ffmpeg", args[0])
	args[1] = "changed"
	assert.Equal(t, "-i", c.Args()[1])

	assert.Equal(t, `ffmpeg -i "my clip.flv" out.mp4`, c.String())
	assert.Equal(t, "ffmpeg", c.Program())
	assert.True(t, Command{}.IsZero())
}

func TestValidEncoding(t *testing.T) {
	assert.True(t, ValidEncoding(""))
	assert.True(t, ValidEncoding("gbk"))
	assert.True(t, ValidEncoding("windows-1252"))
	assert.False(t, ValidEncoding("klingon"))
}
