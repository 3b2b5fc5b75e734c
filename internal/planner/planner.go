package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/probe"
)

// Plan decides and builds in one step.
func Plan(desc *probe.MediaDescriptor, policy TranscodePolicy, target Target) (ffmpeg.Command, error) {
	plan, err := BuildPlan(desc, policy)
	if err != nil {
		return ffmpeg.Command{}, err
	}
	return Build(plan, target), nil
}

// BuildPlan produces the FilePlan for a probed file. This is the central
// decision matrix the pipeline calls for every conversion.
//
// Flow:
//  1. Locate first video / first audio (absence is a valid case)
//  2. Reject gaps: nothing to work with, or a policy-required track missing
//  3. Fast start: whole-file copy, decisions are passthrough
//  4. Compatibility: video copy when already H.264, else libx264
//  5. Compatibility: audio copy when already AAC and not forced, else AAC
func BuildPlan(desc *probe.MediaDescriptor, policy TranscodePolicy) (*FilePlan, error) {
	if desc == nil {
		return nil, &GapError{Reason: "no media description"}
	}

	// --- 1. Stream selection ---
	video, hasVideo := desc.FirstVideo()
	audio, hasAudio := desc.FirstAudio()

	// --- 2. Gaps ---
	if err := checkGaps(hasVideo, hasAudio, policy); err != nil {
		return nil, err
	}

	plan := &FilePlan{
		Duration: desc.Duration,
		Notes:    streamNotes(desc),
		Video:    StreamDecision{Action: ActionOmit, StreamIndex: -1, Reason: "no video stream"},
		Audio:    StreamDecision{Action: ActionOmit, StreamIndex: -1, Reason: "no audio stream"},
	}

	// --- 3. Fast-start path ---
	if !policy.CompatibilityMode {
		plan.Mode = ModeFastStart
		if hasVideo {
			plan.Video = StreamDecision{Action: ActionPassthrough, StreamIndex: video.Index, SourceCodec: video.CodecName, Reason: "compatibility mode off"}
		}
		if hasAudio {
			plan.Audio = StreamDecision{Action: ActionPassthrough, StreamIndex: audio.Index, SourceCodec: audio.CodecName, Reason: "compatibility mode off"}
		}
		return plan, nil
	}

	// --- 4. Compatibility path: video ---
	plan.Mode = ModeCompat
	plan.HWAccel = policy.HWAccel
	preset, err := ParsePreset(string(policy.VideoPreset))
	if err != nil {
		return nil, err
	}
	plan.VideoPreset = preset
	if hasVideo {
		plan.Video = decideVideo(video)
	}

	// --- 5. Compatibility path: audio ---
	plan.AudioBitrate = policy.AudioBitrate
	if plan.AudioBitrate == "" {
		plan.AudioBitrate = DefaultPolicy().AudioBitrate
	}
	if hasAudio {
		plan.Audio = decideAudio(audio, policy.ForceAudioReencode)
	}
	return plan, nil
}

func decideVideo(v probe.StreamDescriptor) StreamDecision {
	d := StreamDecision{StreamIndex: v.Index, SourceCodec: v.CodecName}
	if strings.EqualFold(v.CodecName, TargetVideoCodec) {
		d.Action = ActionCopy
		d.Reason = "already " + TargetVideoCodec
		return d
	}
	d.Action = ActionEncode
	d.Reason = fmt.Sprintf("%s is not %s", codecLabel(v.CodecName), TargetVideoCodec)
	return d
}

func checkGaps(hasVideo, hasAudio bool, policy TranscodePolicy) error {
	var missing []string
	if policy.RequireVideo && !hasVideo {
		missing = append(missing, string(probe.CodecVideo))
	}
	if policy.RequireAudio && !hasAudio {
		missing = append(missing, string(probe.CodecAudio))
	}
	if len(missing) > 0 {
		return &GapError{Missing: missing, Reason: "policy requires a track the file does not have"}
	}
	if !hasVideo && !hasAudio {
		return &GapError{
			Missing: []string{string(probe.CodecVideo), string(probe.CodecAudio)},
			Reason:  "file has neither a video nor an audio stream",
		}
	}
	return nil
}

// streamNotes records the multi-stream limitation when it applies.
func streamNotes(desc *probe.MediaDescriptor) []string {
	var notes []string
	for _, t := range []probe.CodecType{probe.CodecVideo, probe.CodecAudio} {
		if n := desc.Count(t); n > 1 {
			notes = append(notes, fmt.Sprintf("%d %s streams; only the first decides copy vs encode", n, t))
		}
	}
	if v, ok := desc.FirstVideo(); ok && v.IsAttachedPic {
		notes = append(notes, "first video stream is cover art")
	}
	return notes
}

func codecLabel(codec string) string {
	if codec == "" {
		return "unknown codec"
	}
	return codec
}
