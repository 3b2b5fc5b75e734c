package naming

import (
	"path/filepath"
	"strings"
)

// Kind selects the naming rule for a derived file.
type Kind int

const (
	KindCompat    Kind = iota // <stem>_compat.mp4
	KindFastStart             // <stem>.mp4
	KindAudio                 // <stem>.mp3
	KindRepair                // fixed_<name>
)

// DerivedName returns the output file name for input under kind.
func DerivedName(input string, kind Kind) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	switch kind {
	case KindFastStart:
		return stem + ".mp4"
	case KindAudio:
		return stem + ".mp3"
	case KindRepair:
		return "fixed_" + base
	default:
		return stem + "_compat.mp4"
	}
}

// OutputPath places the derived name in outDir, or next to the input when
// outDir is empty. A name that would overwrite the input itself (an .mp4
// remuxed in place) gets a "_faststart" suffix instead.
func OutputPath(input, outDir string, kind Kind) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	out := filepath.Join(dir, DerivedName(input, kind))
	if samePath(out, input) {
		base := filepath.Base(input)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		out = filepath.Join(dir, stem+"_faststart"+filepath.Ext(out))
	}
	return out
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
