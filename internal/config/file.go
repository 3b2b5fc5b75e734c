package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML layout. Every leaf is a pointer so an
// absent key leaves the corresponding default or flag value alone.
type FileConfig struct {
	Tools struct {
		FFmpeg  *string `yaml:"ffmpeg"`
		FFprobe *string `yaml:"ffprobe"`
	} `yaml:"tools"`

	Policy struct {
		Compat             *bool   `yaml:"compat"`
		Preset             *string `yaml:"preset"`
		AudioBitrate       *string `yaml:"audio_bitrate"`
		ForceAudioReencode *bool   `yaml:"force_audio_reencode"`
		HWAccel            *string `yaml:"hwaccel"`
	} `yaml:"policy"`

	Extract struct {
		Bitrate *string `yaml:"bitrate"`
	} `yaml:"extract"`

	Verify struct {
		Timeout *time.Duration `yaml:"timeout"`
	} `yaml:"verify"`

	Executor struct {
		TailChars   *int    `yaml:"tail_chars"`
		MaxLogBytes *int    `yaml:"max_log_bytes"`
		Encoding    *string `yaml:"encoding"`
	} `yaml:"executor"`

	Output struct {
		Dir       *string `yaml:"dir"`
		Overwrite *bool   `yaml:"overwrite"`
	} `yaml:"output"`

	Server struct {
		Listen         *string        `yaml:"listen"`
		WorkDir        *string        `yaml:"work_dir"`
		MaxUploadBytes *int64         `yaml:"max_upload_bytes"`
		RateLimit      *int           `yaml:"rate_limit"`
		RateWindow     *time.Duration `yaml:"rate_window"`
	} `yaml:"server"`

	Logging struct {
		Verbose *bool   `yaml:"verbose"`
		Color   *string `yaml:"color"`
		Format  *string `yaml:"format"`
		File    *string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected so a typo
// never silently falls back to a default.
func LoadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes YAML config bytes strictly. An empty document yields
// an empty FileConfig.
func ParseFile(data []byte) (*FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fc, nil
}

// ApplyFile copies the values present in fc onto cfg. changed reports
// whether the user set a flag explicitly; those flags win over the file.
// A nil changed applies every present value.
func ApplyFile(cfg *Config, fc *FileConfig, changed func(flag string) bool) {
	if fc == nil {
		return
	}
	keep := func(flag string) bool { return changed != nil && changed(flag) }

	apply(&cfg.FFmpegBin, fc.Tools.FFmpeg, keep("ffmpeg"))
	apply(&cfg.FFprobeBin, fc.Tools.FFprobe, keep("ffprobe"))

	apply(&cfg.CompatMode, fc.Policy.Compat, keep("compat"))
	apply(&cfg.VideoPreset, fc.Policy.Preset, keep("preset"))
	apply(&cfg.AudioBitrate, fc.Policy.AudioBitrate, keep("audio-bitrate"))
	apply(&cfg.ForceAudioReencode, fc.Policy.ForceAudioReencode, keep("force-audio"))
	apply(&cfg.HWAccel, fc.Policy.HWAccel, keep("hwaccel"))

	apply(&cfg.ExtractBitrate, fc.Extract.Bitrate, keep("bitrate"))
	apply(&cfg.VerifyTimeout, fc.Verify.Timeout, keep("verify-timeout"))

	apply(&cfg.LogTailChars, fc.Executor.TailChars, keep("log-tail"))
	apply(&cfg.MaxLogBytes, fc.Executor.MaxLogBytes, keep("max-log-bytes"))
	apply(&cfg.LocalEncoding, fc.Executor.Encoding, keep("encoding"))

	apply(&cfg.OutputDir, fc.Output.Dir, keep("output-dir"))
	apply(&cfg.Overwrite, fc.Output.Overwrite, keep("overwrite"))

	apply(&cfg.ListenAddr, fc.Server.Listen, keep("listen"))
	apply(&cfg.WorkDir, fc.Server.WorkDir, keep("work-dir"))
	apply(&cfg.MaxUploadBytes, fc.Server.MaxUploadBytes, keep("max-upload"))
	apply(&cfg.RateLimit, fc.Server.RateLimit, keep("rate-limit"))
	apply(&cfg.RateWindow, fc.Server.RateWindow, keep("rate-window"))

	apply(&cfg.Verbose, fc.Logging.Verbose, keep("verbose"))
	apply(&cfg.LogFile, fc.Logging.File, keep("log-file"))
	if fc.Logging.Color != nil && !keep("color") {
		cfg.ColorMode = ColorMode(strings.ToLower(*fc.Logging.Color))
	}
	if fc.Logging.Format != nil && !keep("log-format") {
		cfg.LogFormat = LogFormat(strings.ToLower(*fc.Logging.Format))
	}
}

func apply[T any](dst *T, src *T, skip bool) {
	if src == nil || skip {
		return
	}
	*dst = *src
}

// Load layers the optional config file under the flags already parsed into
// cfg and validates the result.
func Load(cfg *Config, changed func(flag string) bool) error {
	if cfg.ConfigFile != "" {
		fc, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return err
		}
		ApplyFile(cfg, fc, changed)
	}
	return cfg.Validate()
}
