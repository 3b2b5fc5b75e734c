package display

import (
	"fmt"
	"io"

	"github.com/backmassage/reelfix/internal/term"
)

// PrintBanner prints the ASCII art banner, in cyan when colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Cyan)
	fmt.Fprint(w, `           _  __ _
 _ __ ___ ___| |/ _(_)_  __
| '__/ _ \/ _ \ | |_| \ \/ /
| | |  __/  __/ |  _| |>  <
|_|  \___|\___|_|_| |_/_/\_\
`)
	fmt.Fprint(w, term.NC)
	if version != "" {
		fmt.Fprintf(w, "reelfix %s\n", version)
	}
}
