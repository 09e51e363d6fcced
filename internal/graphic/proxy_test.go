package graphic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/resource"
)

// fakeResources is a minimal ResourceCompleter double for exercising
// CreateWidget's resource-load gate without a real Resource Proxy.
type fakeResources struct {
	entries map[string]*resource.Entry
}

func (f *fakeResources) CompleteEngineLoad(alias string, handle uint64) {}
func (f *fakeResources) FailEngineLoad(alias string, err error)         {}
func (f *fakeResources) Lookup(alias string) (*resource.Entry, bool) {
	e, ok := f.entries[alias]
	return e, ok
}

func newTestProxy(t *testing.T) *Proxy {
	t.Helper()
	p := New(Config{TickRate: time.Millisecond, SubmitTimeout: time.Second})
	t.Cleanup(func() { _ = p.Shutdown() })
	return p
}

func TestEnableEngineCreatesHiddenMainWindow(t *testing.T) {
	p := newTestProxy(t)
	_, err := p.EnableEngine()
	require.NoError(t, err)

	eng := newEngine(logging.Default("graphic"), make(chan *Event, 8))
	r := make(chan *Result, 1)
	eng.handle(&Command{Kind: EnableEngine, Reply: r})
	mainID, _ := (<-r).Payload.(uint64)
	require.Contains(t, eng.windows, mainID)
	assert.False(t, eng.windows[mainID].Visible)
}

func TestSetMainWindowReassignsWithoutDestroying(t *testing.T) {
	p := newTestProxy(t)
	_, err := p.EnableEngine()
	require.NoError(t, err)

	w2, err := p.CreateWindow("second", 800, 600)
	require.NoError(t, err)

	require.NoError(t, p.SetMainWindow(w2))

	eng := newEngine(logging.Default("graphic"), make(chan *Event, 8))
	r := make(chan *Result, 1)
	eng.handle(&Command{Kind: EnableEngine, Reply: r})
	first, _ := (<-r).Payload.(uint64)
	eng.handle(&Command{Kind: CreateWindow, Payload: CreateWindowArgs{Title: "second", Width: 800, Height: 600}, Reply: r})
	second, _ := (<-r).Payload.(uint64)
	eng.handle(&Command{Kind: SetMainWindow, Payload: second, Reply: r})
	<-r
	assert.Equal(t, second, eng.mainWindow)
	assert.Contains(t, eng.windows, first)
}

func TestSpawnInsertUpdateComponents(t *testing.T) {
	p := newTestProxy(t)
	id, err := p.SpawnEntity(map[string]map[string]interface{}{
		"Position": {"x": 0.0, "y": 0.0},
	})
	require.NoError(t, err)

	require.NoError(t, p.UpdateComponent(id, "Position", map[string]interface{}{"x": 5.0}))

	entities, err := p.QueryEntities("Position")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, 5.0, entities[0].Components["Position"]["x"])
	assert.Equal(t, 0.0, entities[0].Components["Position"]["y"])
}

func TestInsertReplacesEntireComponent(t *testing.T) {
	p := newTestProxy(t)
	id, err := p.SpawnEntity(map[string]map[string]interface{}{
		"Position": {"x": 1.0, "y": 2.0},
	})
	require.NoError(t, err)

	require.NoError(t, p.InsertComponent(id, "Position", map[string]interface{}{"x": 9.0}))

	entities, err := p.QueryEntities("Position")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	_, hasY := entities[0].Components["Position"]["y"]
	assert.False(t, hasY)
}

func TestButtonColorCascade(t *testing.T) {
	e := newEntity(1)
	e.InsertComponent("HoverBackgroundColor", map[string]interface{}{"color": "blue"})
	e.InsertComponent("PressedBackgroundColor", map[string]interface{}{"color": "darkblue"})
	e.InsertComponent("DisabledBackgroundColor", map[string]interface{}{"color": "gray"})

	assert.Equal(t, "darkblue", EffectiveButtonColor(e, InteractionPressed, false, "white"))
	assert.Equal(t, "blue", EffectiveButtonColor(e, InteractionHovered, false, "white"))
	assert.Equal(t, "white", EffectiveButtonColor(e, InteractionNone, false, "white"))
	assert.Equal(t, "gray", EffectiveButtonColor(e, InteractionPressed, true, "white"))
}

func TestButtonColorFallsBackWhenNoDisabledConfigured(t *testing.T) {
	e := newEntity(1)
	assert.Equal(t, "white", EffectiveButtonColor(e, InteractionNone, true, "white"))
}

func TestDeclareSystemRunsInOrderOverMatchingEntities(t *testing.T) {
	p := newTestProxy(t)
	id, err := p.SpawnEntity(map[string]map[string]interface{}{
		"Counter": {"n": 0.0},
	})
	require.NoError(t, err)

	var calls []string
	require.NoError(t, p.DeclareSystem(&System{
		Name: "tick-logger", Query: []string{"Counter"}, Order: 1, Enabled: true,
		Fn: func(e *Entity, dt time.Duration) { calls = append(calls, "tick") },
	}))

	time.Sleep(30 * time.Millisecond)
	_ = id
	assert.NotEmpty(t, calls)
}

func TestCreateWidgetRejectsUnloadedResource(t *testing.T) {
	resources := &fakeResources{entries: map[string]*resource.Entry{
		"hero-portrait": {Alias: "hero-portrait", State: resource.Loading},
	}}
	p := New(Config{TickRate: time.Millisecond, SubmitTimeout: time.Second, Resources: resources})
	t.Cleanup(func() { _ = p.Shutdown() })

	_, err := p.EnableEngine()
	require.NoError(t, err)
	win, err := p.CreateWindow("main", 640, 480)
	require.NoError(t, err)

	_, err = p.CreateWidget(win, "image", nil, "hero-portrait")
	assert.Error(t, err)
}

func TestCreateWidgetRejectsUnknownResource(t *testing.T) {
	resources := &fakeResources{entries: map[string]*resource.Entry{}}
	p := New(Config{TickRate: time.Millisecond, SubmitTimeout: time.Second, Resources: resources})
	t.Cleanup(func() { _ = p.Shutdown() })

	_, err := p.EnableEngine()
	require.NoError(t, err)
	win, err := p.CreateWindow("main", 640, 480)
	require.NoError(t, err)

	_, err = p.CreateWidget(win, "image", nil, "ghost")
	assert.Error(t, err)
}

func TestCreateWidgetAllowsLoadedResource(t *testing.T) {
	resources := &fakeResources{entries: map[string]*resource.Entry{
		"hero-portrait": {Alias: "hero-portrait", State: resource.Loaded},
	}}
	p := New(Config{TickRate: time.Millisecond, SubmitTimeout: time.Second, Resources: resources})
	t.Cleanup(func() { _ = p.Shutdown() })

	_, err := p.EnableEngine()
	require.NoError(t, err)
	win, err := p.CreateWindow("main", 640, 480)
	require.NoError(t, err)

	_, err = p.CreateWidget(win, "image", nil, "hero-portrait")
	assert.NoError(t, err)
}

func TestCreateWidgetWithoutResourceIDSkipsGate(t *testing.T) {
	p := newTestProxy(t)
	_, err := p.EnableEngine()
	require.NoError(t, err)
	win, err := p.CreateWindow("main", 640, 480)
	require.NoError(t, err)

	_, err = p.CreateWidget(win, "label", nil, "")
	assert.NoError(t, err)
}

func TestShutdownDrainsInFlightWithEngineShutdownError(t *testing.T) {
	p := New(Config{TickRate: time.Hour, SubmitTimeout: time.Second})
	require.NoError(t, p.Shutdown())

	eng := newEngine(logging.Default("graphic"), make(chan *Event, 8))
	cmds := make(chan *Command, 1)
	r := make(chan *Result, 1)
	cmds <- &Command{Kind: CreateWindow, Reply: r}
	eng.drain(cmds)
	assert.ErrorIs(t, (<-r).Error, ErrEngineShutdown)
}
