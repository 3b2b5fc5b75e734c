package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Command is a fully built external tool invocation. Args()[0] is the
// program. Commands are built once and never mutated; accessors return
// copies.
type Command struct {
	args []string

	// Duration is the input's media duration, used to turn out_time into a
	// percentage. Zero when unknown.
	Duration time.Duration
}

// NewCommand copies args into a Command.
func NewCommand(args []string, duration time.Duration) Command {
	return Command{args: append([]string(nil), args...), Duration: duration}
}

// Args returns a copy of the argument list, program first.
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// Program returns the executable name, or "" for the zero Command.
func (c Command) Program() string {
	if len(c.args) == 0 {
		return ""
	}
	return c.args[0]
}

// IsZero reports whether the command has no arguments at all.
func (c Command) IsZero() bool { return len(c.args) == 0 }

// String renders the command as a copy-pasteable shell line. Arguments
// containing whitespace or shell metacharacters are quoted.
func (c Command) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`;&|<>()*?[]#~") {
		return strconv.Quote(s)
	}
	return s
}
