package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesPrivateDir(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, root, filepath.Dir(ws.Dir()))
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir()), "reelfix-"))
	info, err := os.Stat(ws.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	other, err := New(root)
	require.NoError(t, err)
	defer other.Close()
	assert.NotEqual(t, ws.Dir(), other.Dir())
}

func TestMaterialize(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	path, err := ws.Materialize("../../etc/clip.flv", strings.NewReader("FLV\x01"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Dir(), "clip.flv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FLV\x01", string(b))

	entries, err := os.ReadDir(ws.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestMaterialize_FailedWriteLeavesNothing(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.Materialize("clip.flv", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(ws.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClose_RemovesEverything(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = ws.Materialize("a.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, ws.Close())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ws.Close(), "second close is a no-op")
	_, err = ws.Materialize("b.mp4", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"clip.flv", "clip.flv"},
		{"../../secret.mp4", "secret.mp4"},
		{`C:\Users\me\video.mkv`, "video.mkv"},
		{"bad:name?.mp4", "bad_name_.mp4"},
		{"", "upload"},
		{"..", "upload"},
		{"  spaced name.mov  ", "spaced name.mov"},
		{"cafe\u0301.mp4", "caf\u00e9.mp4"},
		{"line\nbreak.mp4", "line_break.mp4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}
