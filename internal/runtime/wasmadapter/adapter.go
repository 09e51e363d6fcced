package wasmadapter

import (
	"os"
	"sync"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/runtime"
	"github.com/staminal/host/internal/staminalerr"
)

// instance is the per-mod compiled module state. It is the sole state this
// adapter owns per spec §4.8 — every long-lived host resource is reached
// through globals instead.
type instance struct {
	module   *wasmer.Module
	instance *wasmer.Instance
	call     wasmer.NativeFunction
	tick     wasmer.NativeFunction
}

// Adapter runs Rust/C++-compiled guest modules under wasmer-go, one
// compiled instance per mod, sharing a single engine/store across all of
// them the way the teacher's Execute helper does per call.
type Adapter struct {
	mu        sync.RWMutex
	engine    *wasmer.Engine
	store     *wasmer.Store
	instances map[string]*instance
	side      runtime.Side
	globals   runtime.Globals
	log       *logging.Logger
}

// New builds a WASM Adapter sharing the given Globals across every guest
// module it loads. globals is scoped to side so a guest reaching for a
// global its side doesn't own gets spec §4.8's SideOnly error back instead
// of a working singleton.
func New(side runtime.Side, globals runtime.Globals, log *logging.Logger) *Adapter {
	if log == nil {
		log = logging.Default("wasm-adapter")
	}
	engine := wasmer.NewEngine()
	return &Adapter{
		engine:    engine,
		store:     wasmer.NewStore(engine),
		instances: make(map[string]*instance),
		side:      side,
		globals:   runtime.ScopeGlobals(side, globals),
		log:       log,
	}
}

// LoadMod compiles and instantiates the WASM module at absolutePath.
func (a *Adapter) LoadMod(modID, absolutePath string) error {
	bytes, err := os.ReadFile(absolutePath)
	if err != nil {
		return staminalerr.Wrap(staminalerr.ManifestInvalid, err, "reading wasm module")
	}

	module, err := wasmer.NewModule(a.store, bytes)
	if err != nil {
		return staminalerr.Wrap(staminalerr.ScriptError, err, "compiling wasm module")
	}

	inst, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		return staminalerr.Wrap(staminalerr.ScriptError, err, "instantiating wasm module")
	}

	callFn, err := inst.Exports.GetFunction("staminal_call")
	if err != nil {
		return staminalerr.Wrap(staminalerr.ScriptError, err, "module does not export staminal_call")
	}
	tickFn, _ := inst.Exports.GetFunction("staminal_tick")

	a.mu.Lock()
	a.instances[modID] = &instance{module: module, instance: inst, call: callFn, tick: tickFn}
	a.mu.Unlock()
	return nil
}

func (a *Adapter) get(modID string) (*instance, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inst, ok := a.instances[modID]
	if !ok {
		return nil, staminalerr.Newf(staminalerr.RuntimeNotRegistered, "mod %q not loaded in wasm adapter", modID)
	}
	return inst, nil
}

// CallFunction invokes function with no meaningful return value expected.
func (a *Adapter) CallFunction(modID, function string) error {
	inst, err := a.get(modID)
	if err != nil {
		return err
	}
	envelope := EncodeCall(modID, function)
	_, err = inst.call(envelope)
	if err != nil {
		return staminalerr.Wrap(staminalerr.ScriptError, err, "invoking guest function")
	}
	return nil
}

// CallFunctionWithReturn invokes function and decodes its {None, String,
// Bool, Int} result envelope.
func (a *Adapter) CallFunctionWithReturn(modID, function string) (runtime.ReturnValue, error) {
	inst, err := a.get(modID)
	if err != nil {
		return runtime.NoneValue, err
	}
	envelope := EncodeCall(modID, function)
	result, err := inst.call(envelope)
	if err != nil {
		return runtime.NoneValue, staminalerr.Wrap(staminalerr.ScriptError, err, "invoking guest function")
	}

	raw, ok := result.([]byte)
	if !ok {
		return runtime.NoneValue, nil
	}
	decoded, err := DecodeReturn(raw)
	if err != nil {
		return runtime.NoneValue, err
	}

	switch decoded.Kind {
	case KindString:
		return runtime.ReturnValue{Kind: "string", Str: decoded.Str}, nil
	case KindBool:
		return runtime.ReturnValue{Kind: "bool", B: decoded.B}, nil
	case KindInt:
		return runtime.ReturnValue{Kind: "int", I: decoded.I}, nil
	default:
		return runtime.NoneValue, nil
	}
}

// RunEventLoop ticks every loaded module once, cooperatively.
func (a *Adapter) RunEventLoop() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for modID, inst := range a.instances {
		if inst.tick == nil {
			continue
		}
		if _, err := inst.tick(); err != nil {
			a.log.Warn("guest tick failed", logging.String("mod", modID), logging.Err(err))
		}
	}
	return nil
}

var _ runtime.Adapter = (*Adapter)(nil)
