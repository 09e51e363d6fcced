package modreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	r.RegisterInfo(&ModInfo{ID: "core", Path: "/mods/core"})

	info, ok := r.Lookup("core")
	require.True(t, ok)
	assert.Equal(t, "/mods/core", info.Path)
}

func TestAliasResolution(t *testing.T) {
	r := New()
	r.RegisterInfo(&ModInfo{ID: "core"})
	require.NoError(t, r.RegisterAlias("core", "/mods/core/main.js"))

	path, ok := r.ResolveAlias("core")
	require.True(t, ok)
	assert.Equal(t, "/mods/core/main.js", path)
}

func TestAliasShadowAfterConsumptionFlagged(t *testing.T) {
	r := New()
	r.RegisterInfo(&ModInfo{ID: "a"})
	require.NoError(t, r.RegisterAlias("a", "/mods/a/v1.js"))
	r.MarkAliasConsumed("a")

	err := r.RegisterAlias("a", "/mods/a/v2.js")
	require.Error(t, err)

	path, ok := r.ResolveAlias("a")
	require.True(t, ok)
	assert.Equal(t, "/mods/a/v2.js", path)
}

func TestSetLoadedUnknownMod(t *testing.T) {
	r := New()
	err := r.SetLoaded("missing")
	require.Error(t, err)
}

func TestLifecycleStateProgression(t *testing.T) {
	r := New()
	r.RegisterInfo(&ModInfo{ID: "core"})
	require.NoError(t, r.SetLoaded("core"))
	require.NoError(t, r.SetBootstrapped("core"))

	info, _ := r.Lookup("core")
	assert.Equal(t, StateBootstrapped, info.State)
}

func TestListReturnsAll(t *testing.T) {
	r := New()
	r.RegisterInfo(&ModInfo{ID: "a"})
	r.RegisterInfo(&ModInfo{ID: "b"})
	assert.Len(t, r.List(), 2)
}
