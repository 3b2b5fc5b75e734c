package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/testutil"
)

const h264MP4 = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "profile": "High", "pix_fmt": "yuv420p"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "4.000000"}
}`

func execute(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	if a.log != nil {
		_ = a.log.Close()
	}
	return err
}

func TestRoot_Subcommands(t *testing.T) {
	a := newApp()
	var names []string
	for _, c := range a.rootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"convert", "extract-audio", "diagnose", "repair", "analyze", "serve", "check"} {
		assert.Contains(t, names, want)
	}
}

func TestAnalyze_FlagsOverrideConfigFile(t *testing.T) {
	bins := testutil.Toolchain{InputJSON: h264MP4}.Install(t)
	dir := t.TempDir()
	media := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(media, []byte("x"), 0o600))

	cfgFile := filepath.Join(dir, "reelfix.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
tools:
  ffprobe: `+bins.FFprobe+`
policy:
  preset: slow
  audio_bitrate: 192k
logging:
  color: never
`), 0o600))

	a := newApp()
	err := execute(t, a, "--config", cfgFile, "analyze", "--preset", "fast", media)
	require.NoError(t, err)

	assert.Equal(t, bins.FFprobe, a.cfg.FFprobeBin)
	assert.Equal(t, "fast", a.cfg.VideoPreset, "flag beats file")
	assert.Equal(t, "192k", a.cfg.AudioBitrate, "file beats default")
}

func TestRoot_InvalidConfigFails(t *testing.T) {
	a := newApp()
	err := execute(t, a, "--color", "never", "analyze", "--audio-bitrate", "loud", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid audio bitrate")
}

func TestDiagnose_MissingFFmpegIsReported(t *testing.T) {
	bins := testutil.Toolchain{InputJSON: h264MP4}.Install(t)
	a := newApp()
	err := execute(t, a, "--color", "never", "--ffmpeg", filepath.Join(t.TempDir(), "missing-ffmpeg"), "--ffprobe", bins.FFprobe,
		"diagnose", filepath.Join(t.TempDir(), "x.mp4"))
	assert.ErrorIs(t, err, errReported)
}

const moovMissing = `[mov,mp4,m4a,3gp,3g2,mj2 @ 0x55d] moov atom not found
broken.mp4: Invalid data found when processing input`

func TestRepair_ExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		repaired string
		wantErr  bool
	}{
		{"improved", "", false},
		{"no improvement", moovMissing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bins := testutil.Toolchain{InputJSON: h264MP4, DetectErrors: moovMissing, RepairedDetectErrors: tt.repaired}.Install(t)
			dir := t.TempDir()
			in := filepath.Join(dir, "broken.mp4")
			require.NoError(t, os.WriteFile(in, []byte("media"), 0o600))

			a := newApp()
			err := execute(t, a, "--color", "never", "--ffmpeg", bins.FFmpeg, "--ffprobe", bins.FFprobe, "repair", in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errReported)
			} else {
				assert.NoError(t, err)
			}
			assert.FileExists(t, filepath.Join(dir, "fixed_broken.mp4"))
		})
	}
}

func TestProgressLine(t *testing.T) {
	var buf bytes.Buffer
	p := &progressLine{w: &buf, enabled: true}

	onProgress, finish := p.forFile("/rec/a-very-long-recording-name-that-needs-cutting.flv")
	require.NotNil(t, onProgress)

	onProgress(ffmpeg.Progress{Line: "Input #0"})
	assert.Empty(t, buf.String(), "lines without a time are not drawn")

	onProgress(ffmpeg.Progress{OutTime: 2 * time.Second, Percent: 50})
	out := buf.String()
	assert.Contains(t, out, "a-very-long-recording-name-th...")
	assert.Contains(t, out, " 50.0%")

	// Redraws are throttled.
	onProgress(ffmpeg.Progress{OutTime: 3 * time.Second, Percent: 75})
	assert.Equal(t, out, buf.String())

	finish()
	assert.Contains(t, buf.String(), "\r\x1b[K")
}

func TestProgressLine_TruncatesByRune(t *testing.T) {
	var buf bytes.Buffer
	p := &progressLine{w: &buf, enabled: true}

	onProgress, _ := p.forFile("/rec/配信アーカイブ_二〇二四年十二月三十一日_年越しカウントダウン特別編.flv")
	onProgress(ffmpeg.Progress{OutTime: time.Second})
	out := buf.String()
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "配信アーカイブ_二〇二四年十二月三十一日_年越しカウントダ...")
}

func TestProgressLine_DisabledOffTerminal(t *testing.T) {
	p := &progressLine{w: &bytes.Buffer{}}
	onProgress, finish := p.forFile("a.flv")
	assert.Nil(t, onProgress)
	assert.Nil(t, finish)
}
