package planner

import (
	"strings"

	"github.com/backmassage/reelfix/internal/ffmpeg"
	"github.com/backmassage/reelfix/internal/probe"
)

// decideAudio copies AAC unless a re-encode is forced; anything else is
// encoded to AAC at the policy bitrate.
func decideAudio(a probe.StreamDescriptor, force bool) StreamDecision {
	d := StreamDecision{StreamIndex: a.Index, SourceCodec: a.CodecName}
	switch {
	case force:
		d.Action = ActionEncode
		d.Reason = "re-encode forced"
	case strings.EqualFold(a.CodecName, TargetAudioCodec):
		d.Action = ActionCopy
		d.Reason = "already " + TargetAudioCodec
	default:
		d.Action = ActionEncode
		d.Reason = codecLabel(a.CodecName) + " is not " + TargetAudioCodec
	}
	return d
}

// PlanAudioExtract builds the command that drops video and encodes the
// first audio stream to MP3. A file without audio is a planning gap.
func PlanAudioExtract(desc *probe.MediaDescriptor, opts ExtractOptions, target Target) (ffmpeg.Command, error) {
	a, ok := desc.FirstAudio()
	if !ok {
		return ffmpeg.Command{}, &GapError{
			Missing: []string{string(probe.CodecAudio)},
			Reason:  "audio extraction needs an audio stream",
		}
	}
	bitrate := opts.Bitrate
	if bitrate == "" {
		bitrate = "320k"
	}
	plan := &FilePlan{
		Mode:         ModeExtractAudio,
		Video:        StreamDecision{Action: ActionOmit, StreamIndex: -1, Reason: "video dropped"},
		Audio:        StreamDecision{Action: ActionEncode, StreamIndex: a.Index, SourceCodec: a.CodecName, Reason: "extract to mp3"},
		AudioBitrate: bitrate,
		Duration:     desc.Duration,
	}
	return Build(plan, target), nil
}
