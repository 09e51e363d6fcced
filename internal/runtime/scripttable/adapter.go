// Package scripttable implements a Runtime Adapter (C8) shell for
// interpreted languages (JavaScript, Lua) whose bytecode/GC internals spec
// §1 explicitly places out of scope. Rather than embedding a full VM, the
// adapter dispatches to a pluggable ScriptEngine the host wires in per
// language, mirroring the way the teacher's Runtime Manager/unit dispatch
// separates "who owns this mod" bookkeeping from "how the work actually
// runs".
package scripttable

import (
	"sync"

	"github.com/staminal/host/internal/runtime"
	"github.com/staminal/host/internal/staminalerr"
)

// ScriptEngine is the narrow contract an embedded interpreter (goja for
// JavaScript, gopher-lua for Lua) must satisfy to back this adapter.
type ScriptEngine interface {
	LoadSource(modID, absolutePath string, globals runtime.Globals) error
	Invoke(modID, function string) (runtime.ReturnValue, error)
	Tick(modID string) error
	Unload(modID string)
}

// Adapter routes calls to an injected ScriptEngine, tracking only which
// mod ids are loaded — the script environment itself lives inside the
// engine.
type Adapter struct {
	mu      sync.RWMutex
	engine  ScriptEngine
	side    runtime.Side
	globals runtime.Globals
	loaded  map[string]bool
}

// New builds an Adapter backed by engine, sharing globals with every mod
// it loads. globals is scoped to side so a mod reaching for a global its
// side doesn't own gets spec §4.8's SideOnly error back instead of a
// working singleton.
func New(engine ScriptEngine, side runtime.Side, globals runtime.Globals) *Adapter {
	return &Adapter{
		engine:  engine,
		side:    side,
		globals: runtime.ScopeGlobals(side, globals),
		loaded:  make(map[string]bool),
	}
}

func (a *Adapter) LoadMod(modID, absolutePath string) error {
	if err := a.engine.LoadSource(modID, absolutePath, a.globals); err != nil {
		return err
	}
	a.mu.Lock()
	a.loaded[modID] = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) ensureLoaded(modID string) error {
	a.mu.RLock()
	ok := a.loaded[modID]
	a.mu.RUnlock()
	if !ok {
		return staminalerr.Newf(staminalerr.RuntimeNotRegistered, "mod %q not loaded in script adapter", modID)
	}
	return nil
}

func (a *Adapter) CallFunction(modID, function string) error {
	if err := a.ensureLoaded(modID); err != nil {
		return err
	}
	_, err := a.engine.Invoke(modID, function)
	return err
}

func (a *Adapter) CallFunctionWithReturn(modID, function string) (runtime.ReturnValue, error) {
	if err := a.ensureLoaded(modID); err != nil {
		return runtime.NoneValue, err
	}
	return a.engine.Invoke(modID, function)
}

// RunEventLoop ticks every loaded mod once, cooperatively; the engine's
// Tick implementation decides how much work one tick performs.
func (a *Adapter) RunEventLoop() error {
	a.mu.RLock()
	ids := make([]string, 0, len(a.loaded))
	for id := range a.loaded {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	for _, id := range ids {
		if err := a.engine.Tick(id); err != nil {
			return err
		}
	}
	return nil
}

var _ runtime.Adapter = (*Adapter)(nil)
