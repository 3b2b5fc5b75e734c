package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reelfix/internal/planner"
)

func TestDefaultConfig_MatchesPolicyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, planner.DefaultPolicy(), cfg.Policy())
}

func TestNormalizeAudioBitrate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"320k", "320k", false},
		{"256", "256k", false},
		{" 192K ", "192k", false},
		{"128kbps", "128k", false},
		{"", "", true},
		{"0k", "", true},
		{"-64k", "", true},
		{"fast", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeAudioBitrate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeAudioBitrate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeAudioBitrate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"preset canonicalized", func(c *Config) { c.VideoPreset = "SLOW" }, false},
		{"unknown preset", func(c *Config) { c.VideoPreset = "ludicrous" }, true},
		{"bad audio bitrate", func(c *Config) { c.AudioBitrate = "lots" }, true},
		{"bad extract bitrate", func(c *Config) { c.ExtractBitrate = "" }, true},
		{"empty ffmpeg", func(c *Config) { c.FFmpegBin = " " }, true},
		{"bad color", func(c *Config) { c.ColorMode = "sometimes" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"known encoding", func(c *Config) { c.LocalEncoding = "gbk" }, false},
		{"unknown encoding", func(c *Config) { c.LocalEncoding = "klingon" }, true},
		{"zero verify timeout", func(c *Config) { c.VerifyTimeout = 0 }, true},
		{"log smaller than tail", func(c *Config) { c.MaxLogBytes = 10 }, true},
		{"zero upload cap", func(c *Config) { c.MaxUploadBytes = 0 }, true},
		{"rate limit disabled", func(c *Config) { c.RateLimit = 0; c.RateWindow = 0 }, false},
		{"rate limit without window", func(c *Config) { c.RateWindow = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.VideoPreset = " Slow "
	cfg.AudioBitrate = "192"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "slow", cfg.VideoPreset)
	assert.Equal(t, "192k", cfg.AudioBitrate)
}

func TestFlags_EnumValues(t *testing.T) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindGlobalFlags(fs, &cfg)
	BindPolicyFlags(fs, &cfg)

	require.NoError(t, fs.Parse([]string{"--color=NEVER", "--log-format", "json", "--preset", "Fast", "--compat=false"}))
	assert.Equal(t, ColorNever, cfg.ColorMode)
	assert.Equal(t, LogJSON, cfg.LogFormat)
	assert.Equal(t, "fast", cfg.VideoPreset)
	assert.False(t, cfg.CompatMode)

	for _, args := range [][]string{
		{"--color", "rainbow"},
		{"--log-format", "xml"},
		{"--preset", "ludicrous"},
	} {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		c := DefaultConfig()
		BindGlobalFlags(fs, &c)
		BindPolicyFlags(fs, &c)
		assert.Error(t, fs.Parse(args), "%v", args)
	}
}

const sampleYAML = `
tools:
  ffmpeg: /opt/ffmpeg/bin/ffmpeg
policy:
  compat: false
  preset: slow
  audio_bitrate: 256k
extract:
  bitrate: 192k
verify:
  timeout: 3s
server:
  listen: 127.0.0.1:9000
  rate_window: 30s
logging:
  color: Never
`

func TestParseFile(t *testing.T) {
	fc, err := ParseFile([]byte(sampleYAML))
	require.NoError(t, err)

	cfg := DefaultConfig()
	ApplyFile(&cfg, fc, nil)

	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, "ffprobe", cfg.FFprobeBin, "absent keys keep defaults")
	assert.False(t, cfg.CompatMode)
	assert.Equal(t, "slow", cfg.VideoPreset)
	assert.Equal(t, "256k", cfg.AudioBitrate)
	assert.Equal(t, "192k", cfg.ExtractBitrate)
	assert.Equal(t, 3*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.RateWindow)
	assert.Equal(t, ColorNever, cfg.ColorMode)
	require.NoError(t, cfg.Validate())
}

func TestParseFile_Strict(t *testing.T) {
	_, err := ParseFile([]byte("policy:\n  crf: 18\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = ParseFile([]byte("policy:\n  preset: fast\n---\npolicy:\n  preset: slow\n"))
	assert.Error(t, err, "multiple documents are rejected")

	fc, err := ParseFile(nil)
	require.NoError(t, err)
	cfg := DefaultConfig()
	ApplyFile(&cfg, fc, nil)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FlagsWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelfix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindGlobalFlags(fs, &cfg)
	BindPolicyFlags(fs, &cfg)
	require.NoError(t, fs.Parse([]string{"--config", path, "--preset", "veryfast"}))

	require.NoError(t, Load(&cfg, func(name string) bool { return fs.Changed(name) }))
	assert.Equal(t, "veryfast", cfg.VideoPreset, "explicit flag beats the file")
	assert.Equal(t, "256k", cfg.AudioBitrate, "file beats the default")
	assert.False(t, cfg.CompatMode)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	toml := filepath.Join(dir, "reelfix.toml")
	require.NoError(t, os.WriteFile(toml, []byte("x = 1"), 0o644))
	_, err = LoadFile(toml)
	assert.ErrorContains(t, err, "only YAML")

	cfg := DefaultConfig()
	cfg.ConfigFile = filepath.Join(dir, "missing.yml")
	assert.Error(t, Load(&cfg, nil))
}
