package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober runs ffprobe. The zero value uses "ffprobe" from PATH.
type Prober struct {
	Bin string
}

// New returns a Prober that runs bin. An empty bin means "ffprobe".
func New(bin string) *Prober {
	return &Prober{Bin: bin}
}

func (p *Prober) bin() string {
	if p == nil || p.Bin == "" {
		return "ffprobe"
	}
	return p.Bin
}

// Probe runs a single ffprobe JSON call against path and returns the
// parsed descriptor. Failures are returned as *Error; nothing is retried.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaDescriptor, error) {
	cmd := exec.CommandContext(ctx, p.bin(),
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &Error{Path: path, Stderr: stderr.String(), Err: err}
	}

	desc, err := ParseJSON(stdout.Bytes())
	if err != nil {
		return nil, &Error{Path: path, Stderr: stderr.String(), Err: err}
	}
	return desc, nil
}

// ParseJSON converts raw ffprobe JSON output into a MediaDescriptor.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*MediaDescriptor, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if raw.Streams == nil && raw.Format == nil {
		return nil, fmt.Errorf("parse ffprobe JSON: no streams or format section")
	}
	return buildDescriptor(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  *ffprobeFormat  `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	Index       int            `json:"index"`
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Profile     string         `json:"profile"`
	PixFmt      string         `json:"pix_fmt"`
	Disposition map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildDescriptor(raw *ffprobeOutput) *MediaDescriptor {
	desc := &MediaDescriptor{
		Streams: make([]StreamDescriptor, 0, len(raw.Streams)),
	}
	if raw.Format != nil {
		desc.FormatName = raw.Format.FormatName
		desc.Duration = parseSeconds(raw.Format.Duration)
	}
	for i := range raw.Streams {
		desc.Streams = append(desc.Streams, convertStream(&raw.Streams[i]))
	}
	return desc
}

func convertStream(s *ffprobeStream) StreamDescriptor {
	sd := StreamDescriptor{
		Index:         s.Index,
		CodecName:     s.CodecName,
		PixelFormat:   s.PixFmt,
		Profile:       s.Profile,
		IsAttachedPic: s.Disposition["attached_pic"] == 1,
	}
	switch s.CodecType {
	case "video":
		sd.CodecType = CodecVideo
	case "audio":
		sd.CodecType = CodecAudio
	default:
		sd.CodecType = CodecOther
	}
	return sd
}

// parseSeconds converts ffprobe's decimal seconds string ("1437.123000")
// into a Duration. Missing or "N/A" values yield zero.
func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
