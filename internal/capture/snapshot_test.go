package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureBoardPNGValidatesOptions(t *testing.T) {
	err := CaptureBoardPNG(context.Background(), Options{Output: "x.png"})
	assert.EqualError(t, err, "capture: URL is required")

	err = CaptureBoardPNG(context.Background(), Options{URL: "http://127.0.0.1/"})
	assert.EqualError(t, err, "capture: Output is required")
}

func TestNormalizeDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1/", Output: "board.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultReadySelector, o.ReadySelector)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "board.png")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
