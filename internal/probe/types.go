package probe

import "time"

// CodecType classifies a stream. Anything that is neither video nor audio
// (subtitles, data, attachments) is reported as CodecOther.
type CodecType string

const (
	CodecVideo CodecType = "video"
	CodecAudio CodecType = "audio"
	CodecOther CodecType = "other"
)

// StreamDescriptor holds the parsed properties of a single stream.
// PixelFormat and Profile are empty when ffprobe does not report them.
type StreamDescriptor struct {
	Index         int
	CodecType     CodecType
	CodecName     string
	PixelFormat   string
	Profile       string
	IsAttachedPic bool
}

// MediaDescriptor is the fully parsed output of a single ffprobe call.
// Streams keep the order ffprobe reported them in.
type MediaDescriptor struct {
	Streams    []StreamDescriptor
	FormatName string
	Duration   time.Duration
}

// FirstVideo returns the first video stream in descriptor order.
// Cover art counts as a video stream here; the bool is false when the file
// has no video stream at all.
func (m *MediaDescriptor) FirstVideo() (StreamDescriptor, bool) {
	return m.first(CodecVideo)
}

// FirstAudio returns the first audio stream in descriptor order.
func (m *MediaDescriptor) FirstAudio() (StreamDescriptor, bool) {
	return m.first(CodecAudio)
}

// Count returns how many streams of the given type the file carries.
func (m *MediaDescriptor) Count(t CodecType) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, s := range m.Streams {
		if s.CodecType == t {
			n++
		}
	}
	return n
}

func (m *MediaDescriptor) first(t CodecType) (StreamDescriptor, bool) {
	if m == nil {
		return StreamDescriptor{}, false
	}
	for _, s := range m.Streams {
		if s.CodecType == t {
			return s, true
		}
	}
	return StreamDescriptor{}, false
}
