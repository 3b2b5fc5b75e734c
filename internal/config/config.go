// Package config holds runtime configuration: defaults, the optional YAML
// file, CLI flag binding, and validation. Defaults match the settings the
// converter pages shipped with (compatibility mode on, medium preset,
// 320k audio).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/planner"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// LogFormat selects the console log encoding.
type LogFormat string

const (
	LogConsole LogFormat = "console" // Human-readable lines (default).
	LogJSON    LogFormat = "json"    // One JSON object per line.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by the CLI flags and [LoadFile], and finally checked by
// [Config.Validate] before being passed (by pointer) to packages that need it.
type Config struct {
	// External tools.
	FFmpegBin  string // Default: "ffmpeg".
	FFprobeBin string // Default: "ffprobe".

	// Transcode policy (converted to planner.TranscodePolicy per operation).
	CompatMode         bool   // Default: true.
	VideoPreset        string // Default: "medium".
	AudioBitrate       string // Default: "320k".
	ForceAudioReencode bool   // Default: false.
	HWAccel            string // Default: "auto". Empty disables -hwaccel.

	// Audio extraction.
	ExtractBitrate string // Default: "320k".

	// Output verification.
	VerifyTimeout time.Duration // Default: 10s.

	// Executor.
	LogTailChars  int    // Default: 2000 characters handed to progress callbacks.
	MaxLogBytes   int    // Default: 4 MiB of captured encoder output.
	LocalEncoding string // Fallback decoder name; empty picks the platform default.

	// Batch output (CLI).
	OutputDir string // Empty: next to each input.
	Overwrite bool   // Default: false (skip existing outputs).
	DryRun    bool

	// Upload server.
	ListenAddr     string        // Default: ":8080".
	WorkDir        string        // Default: os.TempDir().
	MaxUploadBytes int64         // Default: 4 GiB.
	RateLimit      int           // Default: 30 requests per RateWindow per IP.
	RateWindow     time.Duration // Default: 1m.

	// Display and logging.
	Verbose    bool
	ColorMode  ColorMode // Default: "auto".
	LogFormat  LogFormat // Default: "console".
	LogFile    string    // Optional log file path (JSON lines).
	ConfigFile string    // Optional YAML config path.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before the config file and CLI flags are layered on top.
func DefaultConfig() Config {
	return Config{
		FFmpegBin:          "ffmpeg",
		FFprobeBin:         "ffprobe",
		CompatMode:         true,
		VideoPreset:        string(planner.PresetMedium),
		AudioBitrate:       "320k",
		ForceAudioReencode: false,
		HWAccel:            "auto",
		ExtractBitrate:     "320k",
		VerifyTimeout:      10 * time.Second,
		LogTailChars:       2000,
		MaxLogBytes:        4 << 20,
		ListenAddr:         ":8080",
		WorkDir:            os.TempDir(),
		MaxUploadBytes:     4 << 30,
		RateLimit:          30,
		RateWindow:         time.Minute,
		ColorMode:          ColorAuto,
		LogFormat:          LogConsole,
	}
}

// Policy converts the policy fields into the explicit value the planner
// consumes. Required-track flags are left to the caller.
func (c *Config) Policy() planner.TranscodePolicy {
	return planner.TranscodePolicy{
		CompatibilityMode:  c.CompatMode,
		VideoPreset:        planner.Preset(c.VideoPreset),
		AudioBitrate:       c.AudioBitrate,
		ForceAudioReencode: c.ForceAudioReencode,
		HWAccel:            c.HWAccel,
	}
}

// Validate checks enum fields and numeric bounds and canonicalizes the
// bitrate tokens in place.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpegBin) == "" || strings.TrimSpace(c.FFprobeBin) == "" {
		return errors.New("ffmpeg and ffprobe binaries must not be empty")
	}

	preset, err := planner.ParsePreset(c.VideoPreset)
	if err != nil {
		return err
	}
	c.VideoPreset = string(preset)

	if c.AudioBitrate, err = normalizeAudioBitrate(c.AudioBitrate); err != nil {
		return err
	}
	if c.ExtractBitrate, err = normalizeAudioBitrate(c.ExtractBitrate); err != nil {
		return err
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	switch c.LogFormat {
	case LogConsole, LogJSON:
		// valid
	default:
		return errors.New("invalid log format (use 'console' or 'json')")
	}

	if !ffmpeg.ValidEncoding(c.LocalEncoding) {
		return fmt.Errorf("unknown output encoding %q", c.LocalEncoding)
	}
	if c.VerifyTimeout <= 0 {
		return errors.New("verify timeout must be positive")
	}
	if c.LogTailChars <= 0 {
		return errors.New("log tail size must be positive")
	}
	if c.MaxLogBytes < c.LogTailChars {
		return fmt.Errorf("max log bytes (%d) must be at least the tail size (%d)", c.MaxLogBytes, c.LogTailChars)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return errors.New("rate window must be positive when rate limiting is enabled")
	}
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "256", "256k", "256K", "256kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 192k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}

// NormalizeBitrate exposes the bitrate canonicalization to request
// handlers that accept user-supplied rates.
func NormalizeBitrate(raw string) (string, error) {
	return normalizeAudioBitrate(raw)
}
