package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Toolchain configures a fake ffprobe/ffmpeg pair for end-to-end tests of
// the pipeline and the HTTP server.
type Toolchain struct {
	// InputJSON is what ffprobe prints for source files.
	InputJSON string
	// OutputJSON is what ffprobe prints for paths matching OutputGlob.
	// Empty reuses InputJSON.
	OutputJSON string
	// OutputGlob is a shell case pattern. Default "*_compat.mp4".
	OutputGlob string
	// DetectErrors is printed by the detection pass (-f null) for any path
	// not containing "fixed_"; a non-empty value makes that pass exit 1.
	DetectErrors string
	// RepairedDetectErrors is what the detection pass prints for "fixed_"
	// paths. Empty means the repaired output decodes cleanly.
	RepairedDetectErrors string
	// EncodeFailure, when set, makes every encode write a partial output,
	// print this text to stderr and exit 1.
	EncodeFailure string
}

// Bins holds the paths of the written fakes.
type Bins struct {
	FFprobe string
	FFmpeg  string
}

// Install writes the fakes into a fresh temp dir.
func (tc Toolchain) Install(t *testing.T) Bins {
	t.Helper()
	RequireShell(t)
	dir := t.TempDir()

	out := tc.OutputJSON
	if out == "" {
		out = tc.InputJSON
	}
	glob := tc.OutputGlob
	if glob == "" {
		glob = "*_compat.mp4"
	}
	write(t, dir, "in.json", tc.InputJSON)
	write(t, dir, "out.json", out)
	write(t, dir, "detect.txt", tc.DetectErrors)
	write(t, dir, "detect_fixed.txt", tc.RepairedDetectErrors)
	write(t, dir, "fail.txt", tc.EncodeFailure)

	probe := `for last; do :; done
case "$last" in
` + glob + `) cat '` + filepath.Join(dir, "out.json") + `' ;;
*) cat '` + filepath.Join(dir, "in.json") + `' ;;
esac
`
	ffmpeg := `for last; do :; done
detect='` + filepath.Join(dir, "detect.txt") + `'
detect_fixed='` + filepath.Join(dir, "detect_fixed.txt") + `'
fail='` + filepath.Join(dir, "fail.txt") + `'
case "$*" in
*"-f null -")
	case "$*" in *fixed_*) detect="$detect_fixed" ;; esac
	if [ -s "$detect" ]; then cat "$detect" >&2; exit 1; fi
	exit 0
	;;
esac
echo "Input #0, from '$last'"
if [ -s "$fail" ]; then
	echo partial > "$last"
	cat "$fail" >&2
	exit 1
fi
printf 'frame=  10 time=00:00:01.00 bitrate=1k\rframe=  20 time=00:00:02.00 bitrate=1k\r' >&2
echo converted > "$last"
`
	return Bins{
		FFprobe: WriteScript(t, dir, "ffprobe", probe),
		FFmpeg:  WriteScript(t, dir, "ffmpeg", ffmpeg),
	}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
