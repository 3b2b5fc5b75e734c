package term

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reelfix/internal/config"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(config.ColorNever) })

	assert.True(t, Configure(config.ColorAlways))
	assert.True(t, Enabled())
	assert.NotEmpty(t, Red)

	assert.False(t, Configure(config.ColorNever))
	assert.False(t, Enabled())
	assert.Empty(t, Red+Green+Yellow+Blue+Cyan+Bold+NC)
}

func TestConfigure_AutoHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Cleanup(func() { Configure(config.ColorNever) })
	assert.False(t, Configure(config.ColorAuto))
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.False(t, IsTerminal(nil))
}
