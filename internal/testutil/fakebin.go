// Package testutil holds helpers shared by package tests: fake ffprobe and
// ffmpeg executables written as shell scripts into a test's temp dir.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// RequireShell skips the test on platforms without /bin/sh.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need /bin/sh")
	}
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body
	if !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	// #nosec G306 -- test helper script needs to be executable
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake tool %s: %v", name, err)
	}
	return path
}

// FakeProbe returns a fake ffprobe that prints jsonOut and exits 0,
// whatever arguments it is given.
func FakeProbe(t *testing.T, jsonOut string) string {
	t.Helper()
	return WriteScript(t, t.TempDir(), "ffprobe", "cat <<'__JSON__'\n"+jsonOut+"\n__JSON__\n")
}

// FailingTool returns a fake tool that prints stderr to stderr and exits
// with code.
func FailingTool(t *testing.T, name, stderr string, code int) string {
	t.Helper()
	body := "cat >&2 <<'__ERR__'\n" + stderr + "\n__ERR__\nexit " + strconv.Itoa(code) + "\n"
	return WriteScript(t, t.TempDir(), name, body)
}

