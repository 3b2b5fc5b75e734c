// Package planner decides, per stream, whether a file is stream copied or
// re-encoded and turns that decision into an ffmpeg command.
//
// The flow is split in two so decisions can be inspected and tested apart
// from argument order:
//   - BuildPlan(desc, policy) → *FilePlan    (decisions only, no I/O)
//   - Build(plan, target)     → ffmpeg.Command
//
// Plan does both. PlanAudioExtract covers the MP3 extraction command.
//
// Only the first video and first audio stream decide; further streams of
// the same type ride along through "-map 0:v" / "-map 0:a".
package planner
