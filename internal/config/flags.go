package config

// This file binds Config fields to pflag flag sets. Commands register only
// the groups they use; flag names double as the keys ApplyFile consults to
// decide whether the user overrode a file value.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/backmassage/reelfix/internal/planner"
)

// BindGlobalFlags registers tool, executor, display and logging flags.
// These are persistent on the root command.
func BindGlobalFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "YAML config file")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Debug logging")
	fs.Var(&colorModeValue{&cfg.ColorMode}, "color", "Color output: auto | always | never")
	fs.Var(&logFormatValue{&cfg.LogFormat}, "log-format", "Console log format: console | json")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append JSON logs to this file")

	fs.StringVar(&cfg.FFmpegBin, "ffmpeg", cfg.FFmpegBin, "ffmpeg binary")
	fs.StringVar(&cfg.FFprobeBin, "ffprobe", cfg.FFprobeBin, "ffprobe binary")
	fs.IntVar(&cfg.LogTailChars, "log-tail", cfg.LogTailChars, "Characters of encoder output kept as the live tail")
	fs.IntVar(&cfg.MaxLogBytes, "max-log-bytes", cfg.MaxLogBytes, "Upper bound on captured encoder output")
	fs.StringVar(&cfg.LocalEncoding, "encoding", cfg.LocalEncoding, "Fallback decoder for non-UTF-8 encoder output (e.g. gbk)")
	fs.DurationVar(&cfg.VerifyTimeout, "verify-timeout", cfg.VerifyTimeout, "Timeout for the post-encode verification probe")
}

// BindPolicyFlags registers the transcode policy flags used by convert and
// serve.
func BindPolicyFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.CompatMode, "compat", cfg.CompatMode, "Compatibility mode: re-encode non-H.264 video to H.264 High (false: fast-start remux only)")
	fs.Var(&presetValue{&cfg.VideoPreset}, "preset", "x264 preset: "+strings.Join(presetNames(), " | "))
	fs.StringVar(&cfg.AudioBitrate, "audio-bitrate", cfg.AudioBitrate, "AAC bitrate when audio is re-encoded")
	fs.BoolVar(&cfg.ForceAudioReencode, "force-audio", cfg.ForceAudioReencode, "Re-encode AAC audio too")
	fs.StringVar(&cfg.HWAccel, "hwaccel", cfg.HWAccel, "ffmpeg -hwaccel value for decoding; empty disables")
}

// BindExtractFlags registers audio extraction flags.
func BindExtractFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ExtractBitrate, "bitrate", "b", cfg.ExtractBitrate, "MP3 bitrate (192k | 256k | 320k)")
}

// BindBatchFlags registers output placement flags for file commands.
func BindBatchFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for outputs (default: next to each input)")
	fs.BoolVarP(&cfg.Overwrite, "overwrite", "f", cfg.Overwrite, "Overwrite existing outputs instead of skipping")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", cfg.DryRun, "Print the commands without running them")
}

// BindServerFlags registers upload server flags.
func BindServerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	fs.StringVar(&cfg.WorkDir, "work-dir", cfg.WorkDir, "Root for per-request workspaces")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload", cfg.MaxUploadBytes, "Maximum upload size in bytes")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per window per client IP (0 disables)")
	fs.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "Rate limit window")
}

func presetNames() []string {
	names := make([]string, len(planner.Presets))
	for i, p := range planner.Presets {
		names[i] = string(p)
	}
	return names
}

// pflag.Value adapters for the enum fields.

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Type() string   { return "mode" }
func (c *colorModeValue) Set(s string) error {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		*c.p = m
		return nil
	}
	return fmt.Errorf("invalid color mode %q (use auto, always or never)", s)
}

type logFormatValue struct{ p *LogFormat }

func (l *logFormatValue) String() string { return string(*l.p) }
func (l *logFormatValue) Type() string   { return "format" }
func (l *logFormatValue) Set(s string) error {
	switch f := LogFormat(strings.ToLower(s)); f {
	case LogConsole, LogJSON:
		*l.p = f
		return nil
	}
	return fmt.Errorf("invalid log format %q (use console or json)", s)
}

type presetValue struct{ p *string }

func (v *presetValue) String() string { return *v.p }
func (v *presetValue) Type() string   { return "preset" }
func (v *presetValue) Set(s string) error {
	preset, err := planner.ParsePreset(s)
	if err != nil {
		return err
	}
	*v.p = string(preset)
	return nil
}
