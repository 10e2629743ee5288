package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, SafeWriteFile(p, []byte("one")))
	require.NoError(t, SafeWriteFile(p, []byte("two")))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	first := UniquePath(dir, "sales", ".rfm.md")
	assert.Equal(t, filepath.Join(dir, "sales.rfm.md"), first)
	require.NoError(t, os.WriteFile(first, nil, 0o644))

	second := UniquePath(dir, "sales", ".rfm.md")
	assert.Equal(t, filepath.Join(dir, "sales__2.rfm.md"), second)
	require.NoError(t, os.WriteFile(second, nil, 0o644))

	assert.Equal(t, filepath.Join(dir, "sales__3.rfm.md"), UniquePath(dir, "sales", ".rfm.md"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "q3-orders", Slug("  Q3 Orders ", "sheet"))
	assert.Equal(t, "eu-north", Slug("EU -_ North", "sheet"))
	assert.Equal(t, "sheet", Slug("€€€", "sheet"))
}

func TestEnsureDir(t *testing.T) {
	d := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(d))
	info, err := os.Stat(d)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
