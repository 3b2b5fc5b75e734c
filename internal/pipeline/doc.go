// Package pipeline wires the prober, planner, executor, verifier and repair
// table into the user-facing operations: convert, extract audio, diagnose,
// repair, and batch conversion over files and directories.
//
// Every operation runs at most one external process at a time. Partial
// outputs are removed when the encoder fails; a failed verification is
// reported alongside a successful conversion rather than replacing it.
package pipeline
