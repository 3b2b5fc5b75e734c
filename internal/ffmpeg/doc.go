// Package ffmpeg runs external encoder commands and captures their output.
//
// A [Command] is an immutable argument list produced by the planner or the
// repair table. [Executor.Execute] runs it as one subprocess with stdout and
// stderr merged into a single stream, splits that stream into lines on both
// '\n' and '\r' (ffmpeg redraws its stats line with '\r'), decodes each line
// to UTF-8, and keeps a bounded log. After every line the caller's progress
// callback receives the last TailChars characters of the log together with
// the latest parsed out_time.
//
// A non-zero exit is returned as *ExecutionError (errors.Is
// ErrExecutionFailed) carrying the exit code and the log tail. Nothing is
// retried here.
package ffmpeg
