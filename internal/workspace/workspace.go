// Package workspace scopes the temporary files of one operation to a
// private directory that is removed when the operation ends.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const dirPrefix = "reelfix-"

// ErrClosed is returned by operations on a closed workspace.
var ErrClosed = errors.New("workspace closed")

// Workspace is a private directory for one operation. Callers defer Close
// immediately after New so the directory is removed on every exit path.
type Workspace struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// New creates reelfix-<uuid> under root (os.TempDir() when empty).
func New(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	dir := filepath.Join(root, dirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the location of name inside the workspace. name is
// sanitized, so untrusted upload names cannot escape the directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, SanitizeName(name))
}

// Materialize writes r to name inside the workspace atomically: the file
// either appears complete or not at all. It returns the final path.
func (w *Workspace) Materialize(name string, r io.Reader) (string, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	path := w.Path(name)
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600), renameio.WithTempDir(w.dir))
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.Copy(pf, r); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// Close removes the workspace and everything in it. Safe to call more
// than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return os.RemoveAll(w.dir)
}

// SanitizeName reduces an untrusted file name to a safe base name: Unicode
// NFC, no directory components, no control or path characters. Empty
// results become "upload".
func SanitizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == string(filepath.Separator) {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(strings.TrimSpace(b.String()), ".")
	if out == "" {
		return "upload"
	}
	return out
}
