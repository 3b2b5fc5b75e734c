package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/reelfix/internal/display"
	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/term"
)

const (
	redrawInterval = 250 * time.Millisecond
	barWidth       = 30
	labelWidth     = 32
)

// progressLine redraws one status line while an encoder runs. It draws
// nothing unless w is a terminal.
type progressLine struct {
	w       io.Writer
	enabled bool
	drawn   bool
	last    time.Time
}

func newProgressLine() *progressLine {
	return &progressLine{w: os.Stderr, enabled: term.IsTerminal(os.Stderr)}
}

// forFile returns the progress callback and finish function for path, in
// the shape pipeline.ProgressFactory expects.
func (p *progressLine) forFile(path string) (ffmpeg.ProgressFunc, func()) {
	if !p.enabled {
		return nil, nil
	}
	label := filepath.Base(path)
	if r := []rune(label); len(r) > labelWidth {
		label = string(r[:labelWidth-3]) + "..."
	}
	return func(pr ffmpeg.Progress) { p.draw(label, pr) }, p.finish
}

func (p *progressLine) draw(label string, pr ffmpeg.Progress) {
	if pr.OutTime == 0 {
		return
	}
	now := time.Now()
	if p.drawn && now.Sub(p.last) < redrawInterval {
		return
	}
	p.last = now
	p.drawn = true

	status := display.FormatDuration(pr.OutTime)
	if pr.Percent > 0 {
		status = fmt.Sprintf("%s %5.1f%%  %s", display.ProgressBar(pr.Percent, barWidth), pr.Percent, status)
	}
	fmt.Fprintf(p.w, "\r  %s%s%s  %s\x1b[K", term.Blue, label, term.NC, status)
}

func (p *progressLine) finish() {
	if p.drawn {
		fmt.Fprint(p.w, "\r\x1b[K")
		p.drawn = false
	}
}
