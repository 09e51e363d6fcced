package wasmadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staminal/host/internal/runtime"
)

func TestNewScopesGraphicGlobalToClientOnly(t *testing.T) {
	a := New(runtime.Server, runtime.Globals{Graphic: "a real graphic proxy"}, nil)

	err, ok := a.globals.Graphic.(error)
	require.True(t, ok, "expected server-side Graphic global to be a SideOnly error, got %#v", a.globals.Graphic)
	assert.Contains(t, err.Error(), "is not available on the server")
	assert.Contains(t, err.Error(), "client-only")
}

func TestNewLeavesGraphicGlobalIntactOnClient(t *testing.T) {
	a := New(runtime.Client, runtime.Globals{Graphic: "a real graphic proxy"}, nil)

	assert.Equal(t, "a real graphic proxy", a.globals.Graphic)
}
