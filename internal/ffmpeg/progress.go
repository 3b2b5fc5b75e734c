package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

// Progress is the snapshot handed to a ProgressFunc after every line.
type Progress struct {
	// Line is the line just read.
	Line string
	// Tail is the last TailChars characters of the captured log.
	Tail string
	// OutTime is the most recent out_time reported by ffmpeg's stats line.
	OutTime time.Duration
	// Percent is OutTime relative to Command.Duration (0-100), or 0 when
	// the duration is unknown.
	Percent float64
}

// ProgressFunc receives progress snapshots. It is called from a single
// goroutine, in line order, and must not block for long.
type ProgressFunc func(Progress)

var reOutTime = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseOutTime extracts the "time=HH:MM:SS.xx" field from a stats line.
func parseOutTime(line string) (time.Duration, bool) {
	m := reOutTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute +
		time.Duration(secs*float64(time.Second))
	return d, true
}

func percentOf(out, total time.Duration) float64 {
	if total <= 0 || out <= 0 {
		return 0
	}
	p := float64(out) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}
