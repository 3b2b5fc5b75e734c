package planner

import (
	"github.com/backmassage/reelfix/internal/ffmpeg"
)

// Build constructs the complete ffmpeg argument list for a plan. The
// argument order is fixed per mode so identical plans always yield
// identical commands.
func Build(plan *FilePlan, target Target) ffmpeg.Command {
	args := make([]string, 0, 40)

	// --- Preamble ---
	args = append(args, target.binary(), "-hide_banner", "-nostdin", "-y")

	switch plan.Mode {
	case ModeFastStart:
		args = appendFastStart(args, target)
	case ModeExtractAudio:
		args = appendExtract(args, plan, target)
	default:
		args = appendCompat(args, plan, target)
	}

	// --- Output ---
	args = append(args, target.OutputPath)
	return ffmpeg.NewCommand(args, plan.Duration)
}

// appendFastStart: copy every stream and move the moov atom to the head.
func appendFastStart(args []string, target Target) []string {
	return append(args,
		"-i", target.InputPath,
		"-map", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-max_muxing_queue_size", muxQueueSize,
	)
}

func appendCompat(args []string, plan *FilePlan, target Target) []string {
	// --- Decoder hint ---
	if plan.HWAccel != "" {
		args = append(args, "-hwaccel", plan.HWAccel)
	}

	// --- Input ---
	args = append(args, "-i", target.InputPath)

	// --- Video codec ---
	switch plan.Video.Action {
	case ActionCopy:
		args = append(args, "-c:v", "copy")
	case ActionEncode:
		args = append(args,
			"-c:v", videoEncoder,
			"-preset", string(plan.VideoPreset),
			"-profile:v", videoProfile,
			"-level", videoLevel,
			"-pix_fmt", videoPixFmt,
			"-movflags", "+faststart",
			"-g", keyframeInterval,
			"-x264-params", x264Params,
		)
	}

	// --- Audio codec ---
	switch plan.Audio.Action {
	case ActionCopy:
		args = append(args, "-c:a", "copy")
	case ActionEncode:
		args = append(args, "-c:a", audioEncoder, "-b:a", plan.AudioBitrate)
	}

	// --- Stream maps ---
	if plan.Video.Action != ActionOmit {
		args = append(args, "-map", "0:v")
	}
	if plan.Audio.Action != ActionOmit {
		args = append(args, "-map", "0:a")
	}

	// --- Mux queue ---
	return append(args, "-max_muxing_queue_size", muxQueueSize)
}

func appendExtract(args []string, plan *FilePlan, target Target) []string {
	return append(args,
		"-v", "error", "-stats",
		"-i", target.InputPath,
		"-vn",
		"-map", "0:a:0",
		"-c:a", mp3Encoder,
		"-b:a", plan.AudioBitrate,
		"-q:a", "0",
		"-threads", "0",
	)
}
