// Package term provides ANSI color state and terminal detection.
//
// Colors are package-level variables because the logger, the banner and
// the progress line all need them. [Configure] sets them once during
// startup; when colors are disabled the variables are empty strings,
// making string concatenation a no-op.
package term

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/backmassage/reelfix/internal/config"
)

// ANSI color codes. Empty when colors are disabled.
var (
	Red    = ""
	Green  = ""
	Yellow = ""
	Blue   = ""
	Cyan   = ""
	Bold   = ""
	NC     = "" // Reset sequence.
)

// Configure resolves the color mode, sets the package-level ANSI variables
// and reports whether colors ended up enabled. Call once during startup
// (from [logging.NewLogger]).
func Configure(mode config.ColorMode) bool {
	if resolve(mode) {
		Red = "\033[1;91m"
		Green = "\033[1;92m"
		Yellow = "\033[1;93m"
		Blue = "\033[1;94m"
		Cyan = "\033[1;96m"
		Bold = "\033[1m"
		NC = "\033[0m"
		return true
	}
	Red, Green, Yellow, Blue, Cyan, Bold, NC = "", "", "", "", "", "", ""
	return false
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return NC != "" }

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Stdout returns a writer for stdout that translates ANSI sequences on
// consoles that need it.
func Stdout() io.Writer {
	return colorable.NewColorableStdout()
}
