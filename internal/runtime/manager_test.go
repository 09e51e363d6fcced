package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staminal/host/internal/manifest"
	"github.com/staminal/host/internal/modreg"
)

type fakeAdapter struct {
	loaded    []string
	functions []string
}

func (f *fakeAdapter) LoadMod(modID, absolutePath string) error {
	f.loaded = append(f.loaded, modID)
	return nil
}
func (f *fakeAdapter) CallFunction(modID, fn string) error {
	f.functions = append(f.functions, modID+":"+fn)
	return nil
}
func (f *fakeAdapter) CallFunctionWithReturn(modID, fn string) (ReturnValue, error) {
	return NoneValue, nil
}
func (f *fakeAdapter) RunEventLoop() error { return nil }

func TestKindForExtension(t *testing.T) {
	kind, err := KindForExtension(".js")
	require.NoError(t, err)
	assert.Equal(t, "javascript", kind)

	_, err = KindForExtension(".unknown")
	assert.Error(t, err)
}

func TestRunLifecycleOrdersByPriorityThenID(t *testing.T) {
	reg := modreg.New()
	adapter := &fakeAdapter{}
	mgr := New(reg, nil, nil)
	mgr.RegisterAdapter("javascript", adapter)

	mods := []*manifest.Mod{
		{ID: "b", Dir: "/mods/b", EntryPoint: "main.js", Priority: 5, ModType: manifest.Library},
		{ID: "a", Dir: "/mods/a", EntryPoint: "main.js", Priority: -5, ModType: manifest.Bootstrap},
	}

	var attached, bootstrapped []string
	err := mgr.RunLifecycle(Server, mods, func(modID string) error {
		attached = append(attached, modID)
		return nil
	}, func(modID string) error {
		bootstrapped = append(bootstrapped, modID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, attached)
	assert.Equal(t, []string{"a"}, bootstrapped)
	assert.Equal(t, []string{"a", "b"}, adapter.loaded)
}

func TestRunLifecycleFatalOnServer(t *testing.T) {
	reg := modreg.New()
	adapter := &fakeAdapter{}
	mgr := New(reg, nil, nil)
	mgr.RegisterAdapter("javascript", adapter)

	mods := []*manifest.Mod{{ID: "a", Dir: "/mods/a", EntryPoint: "main.js", ModType: manifest.Library}}

	err := mgr.RunLifecycle(Server, mods, func(modID string) error {
		return assert.AnError
	}, func(modID string) error { return nil })
	require.Error(t, err)
}

func TestRunLifecycleReportsInsteadOfAbortingOnClient(t *testing.T) {
	reg := modreg.New()
	adapter := &fakeAdapter{}
	mgr := New(reg, nil, nil)
	mgr.RegisterAdapter("javascript", adapter)

	mods := []*manifest.Mod{
		{ID: "a", Dir: "/mods/a", EntryPoint: "main.js", ModType: manifest.Library},
		{ID: "b", Dir: "/mods/b", EntryPoint: "main.js", ModType: manifest.Library},
	}

	var reported []string
	mgr.notify = func(modID string, err error) { reported = append(reported, modID) }

	err := mgr.RunLifecycle(Client, mods, func(modID string) error {
		if modID == "a" {
			return assert.AnError
		}
		return nil
	}, func(modID string) error { return nil })

	require.NoError(t, err)
	assert.Contains(t, reported, "a")
	assert.NotContains(t, reported, "b")
}

func TestRunLifecycleSkipsBootstrapForModThatFailedToLoad(t *testing.T) {
	reg := modreg.New()
	adapter := &fakeAdapter{}
	mgr := New(reg, nil, nil)
	mgr.RegisterAdapter("javascript", adapter)

	mods := []*manifest.Mod{
		{ID: "a", Dir: "/mods/a", EntryPoint: "main.js", ModType: manifest.Bootstrap},
	}

	var reported, bootstrapped []string
	mgr.notify = func(modID string, err error) { reported = append(reported, modID) }

	err := mgr.RunLifecycle(Client, mods, func(modID string) error {
		return assert.AnError
	}, func(modID string) error {
		bootstrapped = append(bootstrapped, modID)
		return nil
	})

	require.NoError(t, err)
	assert.Contains(t, reported, "a")
	assert.Empty(t, bootstrapped)
}

func TestCallModFunctionUnknownMod(t *testing.T) {
	reg := modreg.New()
	mgr := New(reg, nil, nil)
	err := mgr.CallModFunction("ghost", "update")
	assert.Error(t, err)
}
