package diagnose

// Signature IDs.
const (
	SigMetadataMissing        = "metadata-missing"
	SigInvalidData            = "invalid-data"
	SigCorrupt                = "corrupt"
	SigMuxQueueOverflow       = "mux-queue-overflow"
	SigTimestampDiscontinuity = "timestamp-discontinuity"
	SigUnknown                = "unknown"
)

// Signature maps lowercase substrings to a description and a suggested
// remedy.
type Signature struct {
	ID          string
	Patterns    []string
	Description string
	Remedy      string
}

// signatures is evaluated in order; first match wins.
var signatures = []Signature{
	{
		ID:          SigMetadataMissing,
		Patterns:    []string{"moov atom not found"},
		Description: "Container metadata is missing (no moov atom)",
		Remedy:      "Re-multiplex the container with fast start so the metadata is written at the head of the file",
	},
	{
		ID:          SigInvalidData,
		Patterns:    []string{"invalid data"},
		Description: "Invalid audio/video data",
		Remedy:      "Try re-encoding the video stream",
	},
	{
		ID:          SigCorrupt,
		Patterns:    []string{"corrupt"},
		Description: "File is corrupted",
		Remedy:      "Try repairing the container format",
	},
	{
		ID:          SigMuxQueueOverflow,
		Patterns:    []string{"too many packets buffered"},
		Description: "Muxing queue overflowed on a stream with large interleaving gaps",
		Remedy:      "Convert again; the converter already raises max_muxing_queue_size",
	},
	{
		ID: SigTimestampDiscontinuity,
		Patterns: []string{
			"non-monotonous dts",
			"non monotonically increasing dts",
			"pts has no value",
			"timestamps are unset",
		},
		Description: "Timestamps are discontinuous or missing",
		Remedy:      "Convert in compatibility mode so timestamps are regenerated by the encoder",
	},
}

var unknownSignature = Signature{
	ID:          SigUnknown,
	Description: "Unknown error",
	Remedy:      "Re-record or obtain the source file again",
}

// Signatures returns a copy of the signature table in evaluation order.
func Signatures() []Signature {
	out := make([]Signature, len(signatures))
	for i, s := range signatures {
		s.Patterns = append([]string(nil), s.Patterns...)
		out[i] = s
	}
	return out
}

// Lookup returns the signature with the given ID, including "unknown".
func Lookup(id string) (Signature, bool) {
	if id == SigUnknown {
		return unknownSignature, true
	}
	for _, s := range signatures {
		if s.ID == id {
			return s, true
		}
	}
	return Signature{}, false
}
