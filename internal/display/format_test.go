package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/reelfix/internal/config"
	"github.com/backmassage/reelfix/internal/diagnose"
	"github.com/backmassage/reelfix/internal/term"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical file 700 MiB", 734003200, "700.0 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
		{"beyond PiB stays PiB", 1 << 62, "4096.0 PiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestFormatSizeChange(t *testing.T) {
	assert.Equal(t, "1.0 MiB → 512.0 KiB (-50%)", FormatSizeChange(1<<20, 512<<10))
	assert.Equal(t, "0 B → 1.0 KiB", FormatSizeChange(0, 1024))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "850ms", FormatDuration(850*time.Millisecond))
	assert.Equal(t, "12.4s", FormatDuration(12400*time.Millisecond))
	assert.Equal(t, "3m07s", FormatDuration(3*time.Minute+7*time.Second))
	assert.Equal(t, "1h02m", FormatDuration(time.Hour+2*time.Minute))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[#####-----]", ProgressBar(50, 10))
	assert.Equal(t, "[----------]", ProgressBar(-3, 10))
	assert.Equal(t, "[##########]", ProgressBar(250, 10))
	assert.Equal(t, "", ProgressBar(50, 0))
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, []string{"b", "c"}, LastLines("a\n\nb\nc\n", 2))
	assert.Empty(t, LastLines("\n\n", 5))
}

func TestPrintDetected(t *testing.T) {
	term.Configure(config.ColorNever)

	var buf bytes.Buffer
	PrintDetected(&buf, diagnose.Classify([]string{"moov atom not found"}))
	assert.Contains(t, buf.String(), "Error #1 [metadata-missing]")
	assert.Contains(t, buf.String(), "detail: moov atom not found")

	buf.Reset()
	PrintDetected(&buf, nil)
	assert.Equal(t, "no errors detected\n", buf.String())
}

func TestPrintBanner(t *testing.T) {
	term.Configure(config.ColorNever)
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "reelfix v1.2.3")
}
