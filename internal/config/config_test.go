package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGameConfigParsesEventBufferSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mygame"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mygame", "game.json"), []byte(`{"event_buffer_size": 4096}`), 0o644))

	cfg, err := LoadGameConfig(dir, "mygame")
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), cfg.EventBufferSize)
}

func TestLoadGameConfigMissingFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadGameConfig(dir, "nogame")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultEventBufferSize), cfg.EventBufferSize)
}

func TestLoadGameConfigZeroSizeFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mygame"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mygame", "game.json"), []byte(`{}`), 0o644))

	cfg, err := LoadGameConfig(dir, "mygame")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultEventBufferSize), cfg.EventBufferSize)
}

func TestFromEnvironDefaultsLang(t *testing.T) {
	os.Unsetenv("STAM_LANG")
	env := FromEnviron()
	assert.Equal(t, "en", env.Lang)
}
