package planner

import "time"

// Target codecs and fixed encoder settings of the compatibility profile.
const (
	TargetVideoCodec = "h264"
	TargetAudioCodec = "aac"

	videoEncoder     = "libx264"
	videoProfile     = "high"
	videoLevel       = "4.2"
	videoPixFmt      = "yuv420p"
	keyframeInterval = "60"
	x264Params       = "nal-hrd=cbr"
	audioEncoder     = "aac"
	mp3Encoder       = "libmp3lame"
	muxQueueSize     = "9999"
)

// TranscodePolicy is the explicit per-operation configuration consumed by
// BuildPlan. It is passed by value and never read from globals.
type TranscodePolicy struct {
	// CompatibilityMode forces the H.264/AAC compatibility profile. When
	// false the file is only remuxed with fast start.
	CompatibilityMode bool
	VideoPreset       Preset
	// AudioBitrate is an ffmpeg rate token such as "320k".
	AudioBitrate       string
	ForceAudioReencode bool

	// RequireVideo and RequireAudio turn a missing track into a planning gap.
	RequireVideo bool
	RequireAudio bool

	// HWAccel is passed as -hwaccel on the compatibility path. Empty omits it.
	HWAccel string
}

// DefaultPolicy returns the defaults the converter has always shipped with.
func DefaultPolicy() TranscodePolicy {
	return TranscodePolicy{
		CompatibilityMode: true,
		VideoPreset:       PresetMedium,
		AudioBitrate:      "320k",
		HWAccel:           "auto",
	}
}

// Mode is the kind of command a plan produces.
type Mode int

const (
	ModeFastStart Mode = iota // stream copy everything, relocate moov
	ModeCompat                // per-stream copy or re-encode to H.264/AAC
	ModeExtractAudio          // drop video, encode first audio to MP3
)

func (m Mode) String() string {
	switch m {
	case ModeFastStart:
		return "faststart"
	case ModeCompat:
		return "compat"
	case ModeExtractAudio:
		return "extract-audio"
	default:
		return "unknown"
	}
}

// Action is the per-stream decision.
type Action int

const (
	ActionOmit        Action = iota // no such stream; no arguments emitted
	ActionCopy                      // -c:<type> copy
	ActionEncode                    // re-encode to the target codec
	ActionPassthrough               // carried by a whole-file stream copy
)

func (a Action) String() string {
	switch a {
	case ActionOmit:
		return "omit"
	case ActionCopy:
		return "copy"
	case ActionEncode:
		return "encode"
	case ActionPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// StreamDecision records what happens to the first stream of one type.
type StreamDecision struct {
	Action      Action
	StreamIndex int
	SourceCodec string
	Reason      string
}

// FilePlan holds the complete set of decisions for one file. It is
// produced by BuildPlan and consumed by Build.
type FilePlan struct {
	Mode  Mode
	Video StreamDecision
	Audio StreamDecision

	VideoPreset  Preset
	AudioBitrate string
	HWAccel      string

	// Duration of the input, carried to the command for progress.
	Duration time.Duration

	// Notes lists documented limitations hit by this file, such as extra
	// streams that do not take part in the decision.
	Notes []string
}

// Target names the files and binary for one command.
type Target struct {
	InputPath  string
	OutputPath string
	// Binary is the ffmpeg executable. Empty means "ffmpeg".
	Binary string
}

func (t Target) binary() string {
	if t.Binary == "" {
		return "ffmpeg"
	}
	return t.Binary
}

// ExtractOptions configures audio extraction.
type ExtractOptions struct {
	// Bitrate is an ffmpeg rate token; empty means "320k".
	Bitrate string
}
