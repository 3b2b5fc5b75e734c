package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/backmassage/reelfix/internal/planner"
	"github.com/backmassage/reelfix/internal/term"
	"github.com/backmassage/reelfix/internal/verify"
)

// AnalysisRow is the probed per-file data for the analysis table.
type AnalysisRow struct {
	Path        string
	VideoCodec  string
	Profile     string
	PixelFormat string
	AudioCodec  string
	// Ready is true when the source video already satisfies the
	// compatibility profile.
	Ready bool
	Video planner.Action
	Audio planner.Action
	// Err is set when the file could not be probed or planned.
	Err error
}

// Analyze probes every media file under inputs and reports what a
// conversion under policy would do, without running the encoder.
func (r *Runner) Analyze(ctx context.Context, inputs []string, policy planner.TranscodePolicy) ([]AnalysisRow, error) {
	files, err := Discover(inputs...)
	if err != nil {
		return nil, err
	}
	profile := verify.DefaultProfile()
	if r.Verifier != nil {
		profile = r.Verifier.Profile
	}

	rows := make([]AnalysisRow, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		row := AnalysisRow{Path: path}

		desc, err := r.Prober.Probe(ctx, path)
		if err != nil {
			row.Err = err
			rows = append(rows, row)
			continue
		}
		if v, ok := desc.FirstVideo(); ok {
			row.VideoCodec, row.Profile, row.PixelFormat = v.CodecName, v.Profile, v.PixelFormat
			row.Ready = verify.Check(v, profile).Passed
		}
		if a, ok := desc.FirstAudio(); ok {
			row.AudioCodec = a.CodecName
		}
		plan, err := planner.BuildPlan(desc, policy)
		if err != nil {
			row.Err = err
		} else {
			row.Video, row.Audio = plan.Video.Action, plan.Audio.Action
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PrintAnalysis writes rows as an aligned table.
func PrintAnalysis(w io.Writer, rows []AnalysisRow) {
	headers := []string{"File", "Video", "Profile", "Pix Fmt", "Audio", "Plan"}
	cells := make([][]string, len(rows))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for i, r := range rows {
		plan := fmt.Sprintf("video %s, audio %s", r.Video, r.Audio)
		if r.Err != nil {
			plan = "error"
		}
		cells[i] = []string{
			truncate(filepath.Base(r.Path), 50),
			orDash(r.VideoCodec), orDash(r.Profile), orDash(r.PixelFormat), orDash(r.AudioCodec),
			plan,
		}
		for j, c := range cells[i] {
			if n := len([]rune(c)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	var sb strings.Builder
	for j, h := range headers {
		fmt.Fprintf(&sb, "  %-*s", widths[j], h)
	}
	header := sb.String()
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	for i, r := range rows {
		var line strings.Builder
		for j, c := range cells[i] {
			fmt.Fprintf(&line, "  %s", pad(c, widths[j]))
		}
		fmt.Fprintf(w, "%s  %s\n", line.String(), flag(r))
	}
	fmt.Fprintln(w)

	var ready, failed int
	for _, r := range rows {
		switch {
		case r.Err != nil:
			failed++
		case r.Ready:
			ready++
		}
	}
	fmt.Fprintf(w, "  %d files: %d already compatible, %d need work, %d unreadable\n",
		len(rows), ready, len(rows)-ready-failed, failed)
}

// flag marks compatible rows green and unreadable rows red. Padding is
// applied before coloring so escape bytes never count toward width.
func flag(r AnalysisRow) string {
	switch {
	case r.Err != nil:
		return term.Red + "[!]" + term.NC
	case r.Ready:
		return term.Green + "[ok]" + term.NC
	default:
		return ""
	}
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
