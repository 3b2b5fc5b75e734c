package display

import (
	"fmt"
	"io"

	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/term"
)

// PrintDetected renders the detection report, numbered from 1.
func PrintDetected(w io.Writer, errs []diagnose.DetectedError) {
	if len(errs) == 0 {
		fmt.Fprintf(w, "%sno errors detected%s\n", term.Green, term.NC)
		return
	}
	for i, e := range errs {
		fmt.Fprintf(w, "%sError #%d%s [%s]\n", term.Bold, i+1, term.NC, e.Signature)
		fmt.Fprintf(w, "  type:   %s\n", e.Description)
		fmt.Fprintf(w, "  detail: %s\n", e.Raw)
		fmt.Fprintf(w, "  remedy: %s\n", e.Remedy)
	}
}

// PrintTail prints the last n lines of a captured log, indented.
func PrintTail(w io.Writer, log string, n int) {
	for _, l := range LastLines(log, n) {
		fmt.Fprintf(w, "  | %s\n", l)
	}
}
