package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staminal/host/internal/staminalerr"
)

func TestValidateWithinRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	sb, err := New(dir)
	require.NoError(t, err)

	real, err := sb.Validate("a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), real)
}

func TestValidateEscapeDenied(t *testing.T) {
	dir := t.TempDir()
	sb, err := New(dir)
	require.NoError(t, err)

	_, err = sb.Validate("../../etc/passwd")
	require.Error(t, err)
	kind, ok := staminalerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, staminalerr.AccessDenied, kind)
}

func TestValidateSymlinkEscapeDenied(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")))

	sb, err := New(dir)
	require.NoError(t, err)

	_, err = sb.Validate("link.txt")
	require.Error(t, err)
	kind, ok := staminalerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, staminalerr.AccessDenied, kind)
}

func TestValidateNewFileAgainstPrimaryRoot(t *testing.T) {
	dir := t.TempDir()
	sb, err := New(dir)
	require.NoError(t, err)

	real, err := sb.Validate("new/subdir/file.txt")
	require.NoError(t, err)
	assert.True(t, within(real, filepath.Clean(dir)))
}

func TestValidateFirstExistingRootWins(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root2, "cfg.json"), []byte("{}"), 0o644))

	sb, err := New(root1, root2)
	require.NoError(t, err)

	real, err := sb.Validate("cfg.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root2, "cfg.json"), real)
}
