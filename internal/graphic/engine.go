package graphic

import (
	"time"

	"github.com/staminal/host/internal/logging"
)

// engine runs on exactly one dedicated goroutine (the reference target is a
// Bevy-like windowed renderer + ECS, per spec §4.7) and owns all mutable
// render-thread state. It communicates with script adapters only through
// the Proxy's command/event channels.
type engine struct {
	log *logging.Logger

	enabled    bool
	windows    map[uint64]*WindowInfo
	mainWindow uint64
	nextWindow uint64

	widgets    map[uint64]*WidgetInfo
	nextWidget uint64

	fonts map[string]bool

	world      *World
	systems    *SystemRegistry
	nextHandle uint64

	events chan *Event
}

func newEngine(log *logging.Logger, events chan *Event) *engine {
	return &engine{
		log:     log,
		windows: make(map[uint64]*WindowInfo),
		widgets: make(map[uint64]*WidgetInfo),
		fonts:   make(map[string]bool),
		world:   newWorld(),
		systems: newSystemRegistry(),
		events:  events,
	}
}

// run is the engine thread's main loop: drain commands, tick systems, repeat.
func (e *engine) run(commands <-chan *Command, tickRate time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			e.handle(cmd)
		case <-ticker.C:
			if e.enabled {
				RunBuiltins(e.world, tickRate)
				e.systems.Tick(e.world, tickRate)
			}
		case <-stop:
			e.drain(commands)
			return
		}
	}
}

// drain replies EngineShutdown to every command still queued, per spec
// §4.7's shutdown contract.
func (e *engine) drain(commands <-chan *Command) {
	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			reply(cmd.Reply, nil, ErrEngineShutdown)
		default:
			return
		}
	}
}

func reply(ch chan *Result, payload interface{}, err error) {
	if ch == nil {
		return
	}
	ch <- &Result{OK: err == nil, Error: err, Payload: payload}
}

func (e *engine) handle(cmd *Command) {
	switch cmd.Kind {
	case EnableEngine:
		e.onEnableEngine(cmd)
	case Shutdown:
		e.onShutdown(cmd)
	case CreateWindow:
		e.onCreateWindow(cmd)
	case CloseWindow:
		e.onCloseWindow(cmd)
	case SetMainWindow:
		e.onSetMainWindow(cmd)
	case SetWindowSize:
		e.onSetWindowSize(cmd)
	case SetWindowTitle:
		e.onSetWindowTitle(cmd)
	case SetWindowMode:
		e.onSetWindowMode(cmd)
	case SetWindowVisible:
		e.onSetWindowVisible(cmd)
	case SetWindowFont:
		e.onSetWindowFont(cmd)
	case LoadFont:
		e.onLoadFont(cmd)
	case UnloadFont:
		e.onUnloadFont(cmd)
	case LoadResource:
		e.onLoadResource(cmd)
	case UnloadResource:
		reply(cmd.Reply, nil, nil)
	case SpawnEntity:
		e.onSpawnEntity(cmd)
	case DespawnEntity:
		e.onDespawnEntity(cmd)
	case InsertComponent:
		e.onInsertComponent(cmd)
	case UpdateComponent:
		e.onUpdateComponent(cmd)
	case RemoveComponent:
		e.onRemoveComponent(cmd)
	case QueryEntities:
		e.onQueryEntities(cmd)
	case DeclareSystem:
		e.onDeclareSystem(cmd)
	case SetSystemEnabled:
		e.onSetSystemEnabled(cmd)
	case RemoveSystem:
		e.onRemoveSystem(cmd)
	case CreateWidget:
		e.onCreateWidget(cmd)
	case DestroyWidget:
		e.onDestroyWidget(cmd)
	case SetWidgetProperty:
		e.onSetWidgetProperty(cmd)
	default:
		reply(cmd.Reply, nil, ErrEngineShutdown)
	}
}

// --- window/engine lifecycle ---

func (e *engine) onEnableEngine(cmd *Command) {
	first := !e.enabled
	e.enabled = true
	if first {
		win := e.newWindow("", 1280, 720)
		win.Visible = false
		e.mainWindow = win.ID
	}
	reply(cmd.Reply, e.mainWindow, nil)
}

func (e *engine) onShutdown(cmd *Command) {
	for id := range e.windows {
		delete(e.windows, id)
	}
	e.enabled = false
	reply(cmd.Reply, nil, nil)
}

func (e *engine) newWindow(title string, w, h int) *WindowInfo {
	e.nextWindow++
	win := &WindowInfo{ID: e.nextWindow, Title: title, Width: w, Height: h, Visible: true}
	e.windows[win.ID] = win
	return win
}

func (e *engine) onCreateWindow(cmd *Command) {
	p, _ := cmd.Payload.(CreateWindowArgs)
	win := e.newWindow(p.Title, p.Width, p.Height)
	reply(cmd.Reply, win.ID, nil)
}

func (e *engine) onCloseWindow(cmd *Command) {
	id, _ := cmd.Payload.(uint64)
	delete(e.windows, id)
	e.events <- &Event{Kind: EventWindowClosed, WindowID: id}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetMainWindow(cmd *Command) {
	id, _ := cmd.Payload.(uint64)
	if _, ok := e.windows[id]; ok {
		e.mainWindow = id
	}
	reply(cmd.Reply, e.mainWindow, nil)
}

func (e *engine) onSetWindowSize(cmd *Command) {
	p, _ := cmd.Payload.(SetWindowSizeArgs)
	if win, ok := e.windows[p.WindowID]; ok {
		win.Width, win.Height = p.Width, p.Height
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetWindowTitle(cmd *Command) {
	p, _ := cmd.Payload.(SetWindowTitleArgs)
	if win, ok := e.windows[p.WindowID]; ok {
		win.Title = p.Title
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetWindowMode(cmd *Command) {
	p, _ := cmd.Payload.(SetWindowModeArgs)
	if win, ok := e.windows[p.WindowID]; ok {
		win.Mode = p.Mode
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetWindowVisible(cmd *Command) {
	p, _ := cmd.Payload.(SetWindowVisibleArgs)
	if win, ok := e.windows[p.WindowID]; ok {
		win.Visible = p.Visible
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetWindowFont(cmd *Command) {
	p, _ := cmd.Payload.(SetWindowFontArgs)
	if win, ok := e.windows[p.WindowID]; ok {
		win.Font = p.Font
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onLoadFont(cmd *Command) {
	name, _ := cmd.Payload.(string)
	e.fonts[name] = true
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onUnloadFont(cmd *Command) {
	name, _ := cmd.Payload.(string)
	delete(e.fonts, name)
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onLoadResource(cmd *Command) {
	p, _ := cmd.Payload.(LoadResourceArgs)
	e.nextHandle++
	handle := e.nextHandle
	reply(cmd.Reply, handle, nil)
	// Asset I/O completes asynchronously; the caller observes completion via
	// a later ResourceLoaded/ResourceFailed event.
	e.events <- &Event{Kind: EventResourceLoaded, Alias: p.Alias, HandleID: handle}
}

// --- ECS ---

func (e *engine) onSpawnEntity(cmd *Command) {
	p, _ := cmd.Payload.(map[string]map[string]interface{})
	id := e.world.Spawn(p)
	reply(cmd.Reply, id, nil)
}

func (e *engine) onDespawnEntity(cmd *Command) {
	id, _ := cmd.Payload.(uint64)
	e.world.Despawn(id)
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onInsertComponent(cmd *Command) {
	p, _ := cmd.Payload.(ComponentArgs)
	if ent, ok := e.world.Get(p.EntityID); ok {
		ent.InsertComponent(p.Component, p.Fields)
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onUpdateComponent(cmd *Command) {
	p, _ := cmd.Payload.(ComponentArgs)
	if ent, ok := e.world.Get(p.EntityID); ok {
		ent.UpdateComponent(p.Component, p.Fields)
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onRemoveComponent(cmd *Command) {
	p, _ := cmd.Payload.(ComponentArgs)
	if ent, ok := e.world.Get(p.EntityID); ok {
		ent.RemoveComponent(p.Component)
	}
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onQueryEntities(cmd *Command) {
	names, _ := cmd.Payload.([]string)
	reply(cmd.Reply, e.world.Query(names...), nil)
}

// --- systems ---

func (e *engine) onDeclareSystem(cmd *Command) {
	s, _ := cmd.Payload.(*System)
	e.systems.Declare(s)
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetSystemEnabled(cmd *Command) {
	p, _ := cmd.Payload.(SetSystemEnabledArgs)
	e.systems.SetEnabled(p.Name, p.Enabled)
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onRemoveSystem(cmd *Command) {
	name, _ := cmd.Payload.(string)
	e.systems.Remove(name)
	reply(cmd.Reply, nil, nil)
}

// --- widgets ---

func (e *engine) onCreateWidget(cmd *Command) {
	p, _ := cmd.Payload.(CreateWidgetArgs)
	e.nextWidget++
	w := &WidgetInfo{ID: e.nextWidget, WindowID: p.WindowID, Kind: p.Kind, Properties: p.Properties, ResourceID: p.ResourceID}
	e.widgets[w.ID] = w
	reply(cmd.Reply, w.ID, nil)
}

func (e *engine) onDestroyWidget(cmd *Command) {
	id, _ := cmd.Payload.(uint64)
	delete(e.widgets, id)
	reply(cmd.Reply, nil, nil)
}

func (e *engine) onSetWidgetProperty(cmd *Command) {
	p, _ := cmd.Payload.(SetWidgetPropertyArgs)
	if w, ok := e.widgets[p.WidgetID]; ok {
		if w.Properties == nil {
			w.Properties = make(map[string]interface{})
		}
		w.Properties[p.Key] = p.Value
	}
	reply(cmd.Reply, nil, nil)
}
