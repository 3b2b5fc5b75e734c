// Package probe runs ffprobe against a media file and converts its JSON
// output into a [MediaDescriptor]: the ordered list of streams with the
// fields the planner and verifier decide on (codec, profile, pixel format).
//
// One ffprobe call is made per Probe; the result is immutable and scoped to
// the operation that requested it.
package probe
