//go:build windows

package ffmpeg

import "os/exec"

// setProcessGroup is a no-op on Windows; exec's default Cancel kills the
// process.
func setProcessGroup(cmd *exec.Cmd) {}
