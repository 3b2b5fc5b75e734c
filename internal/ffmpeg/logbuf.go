package ffmpeg

import (
	"strings"
	"unicode/utf8"
)

// logBuffer is the append-only captured log of one execution. It keeps at
// most maxBytes (dropping from the front at a rune boundary) and serves the
// last tailChars characters as the progress tail.
type logBuffer struct {
	maxBytes  int
	tailChars int

	sb        strings.Builder
	truncated bool
}

func newLogBuffer(maxBytes, tailChars int) *logBuffer {
	if tailChars <= 0 {
		tailChars = DefaultTailChars
	}
	if maxBytes < tailChars*utf8.UTFMax {
		maxBytes = tailChars * utf8.UTFMax
	}
	return &logBuffer{maxBytes: maxBytes, tailChars: tailChars}
}

// appendLine adds one decoded line and its terminator.
func (b *logBuffer) appendLine(line string) {
	b.sb.WriteString(line)
	b.sb.WriteByte('\n')
	if b.sb.Len() <= b.maxBytes {
		return
	}
	s := b.sb.String()
	cut := len(s) - b.maxBytes
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	kept := s[cut:]
	b.sb.Reset()
	b.sb.Grow(b.maxBytes)
	b.sb.WriteString(kept)
	b.truncated = true
}

// String returns the captured log.
func (b *logBuffer) String() string { return b.sb.String() }

// tail returns the last tailChars characters of the log.
func (b *logBuffer) tail() string {
	return lastRunes(b.sb.String(), b.tailChars)
}

// lastRunes returns the suffix of s holding at most n runes.
func lastRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s)
	for count := 0; count < n && i > 0; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}
