package runtime

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/manifest"
	"github.com/staminal/host/internal/modreg"
	"github.com/staminal/host/internal/staminalerr"
)

// ModRegistry is the narrow slice of the Mod Registry the manager drives.
type ModRegistry interface {
	RegisterAlias(modID, absolutePath string) error
	RegisterInfo(info *modreg.ModInfo)
	SetLoaded(modID string) error
	SetBootstrapped(modID string) error
}

// LifecycleNotifier surfaces client-side load/bootstrap failures to the
// Event Bus instead of treating them as fatal (spec §4.9).
type LifecycleNotifier func(modID string, err error)

// Manager is the Runtime Manager (C9): dispatches by extension to one
// adapter per language and enforces the alias -> load -> bootstrap pass
// ordering.
type Manager struct {
	mu       sync.RWMutex
	adapters map[string]Adapter // runtime kind -> adapter
	owner    map[string]string  // mod id -> runtime kind

	registry ModRegistry
	log      *logging.Logger
	notify   LifecycleNotifier
}

// New builds a Manager bound to registry.
func New(registry ModRegistry, log *logging.Logger, notify LifecycleNotifier) *Manager {
	if log == nil {
		log = logging.Default("runtime-manager")
	}
	return &Manager{
		adapters: make(map[string]Adapter),
		owner:    make(map[string]string),
		registry: registry,
		log:      log,
		notify:   notify,
	}
}

// RegisterAdapter binds one Adapter to a runtime kind name.
func (m *Manager) RegisterAdapter(kind string, adapter Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[kind] = adapter
}

func (m *Manager) adapterFor(path string) (Adapter, string, error) {
	kind, err := KindForExtension(filepath.Ext(path))
	if err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	adapter, ok := m.adapters[kind]
	m.mu.RUnlock()
	if !ok {
		return nil, "", staminalerr.Newf(staminalerr.RuntimeNotRegistered, "no adapter registered for runtime %q", kind)
	}
	return adapter, kind, nil
}

// LoadMod dispatches to the adapter owning path's extension and records
// ownership so CallModFunction can route later calls.
func (m *Manager) LoadMod(modID, absolutePath string) error {
	adapter, kind, err := m.adapterFor(absolutePath)
	if err != nil {
		return err
	}
	if err := adapter.LoadMod(modID, absolutePath); err != nil {
		return err
	}
	m.mu.Lock()
	m.owner[modID] = kind
	m.mu.Unlock()
	return nil
}

// CallModFunction dispatches to the adapter that owns modID.
func (m *Manager) CallModFunction(modID, fn string) error {
	m.mu.RLock()
	kind, ok := m.owner[modID]
	m.mu.RUnlock()
	if !ok {
		return staminalerr.Newf(staminalerr.RuntimeNotRegistered, "mod %q has not been loaded by any runtime", modID)
	}
	m.mu.RLock()
	adapter := m.adapters[kind]
	m.mu.RUnlock()
	return adapter.CallFunction(modID, fn)
}

// AttachHook is invoked once per mod during the load pass, after LoadMod
// succeeds, matching the onAttach hook spec §4.9 requires.
type AttachHook func(modID string) error

// BootstrapHook is invoked once per bootstrap-classified mod during the
// bootstrap pass.
type BootstrapHook func(modID string) error

// RunLifecycle enforces the three-pass ordering from spec §4.9 over the
// dependency-resolved mod set.
//
//  1. Alias pass: record every mod's entry path and ModInfo.
//  2. Load pass: in (priority, id) order, LoadMod then onAttach.
//  3. Bootstrap pass: in the same order, onBootstrap for bootstrap mods.
//
// On the server any failure is fatal (returned immediately); on the client
// it is reported through notify instead of aborting the remaining mods.
func (m *Manager) RunLifecycle(side Side, mods []*manifest.Mod, attach AttachHook, bootstrap BootstrapHook) error {
	ordered := append([]*manifest.Mod{}, mods...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	// Alias pass.
	for _, mod := range ordered {
		if err := m.registry.RegisterAlias(mod.ID, filepath.Join(mod.Dir, mod.EntryPoint)); err != nil {
			return err
		}
		m.registry.RegisterInfo(&modreg.ModInfo{
			ID:       mod.ID,
			Path:     mod.Dir,
			Priority: mod.Priority,
			Version:  mod.Version.String(),
		})
	}

	// Load pass.
	loadedOK := make(map[string]bool, len(ordered))
	for _, mod := range ordered {
		if err := m.loadAndAttach(mod, attach); err != nil {
			if side == Server {
				return err
			}
			m.report(mod.ID, err)
			continue
		}
		if err := m.registry.SetLoaded(mod.ID); err != nil {
			if side == Server {
				return err
			}
			m.report(mod.ID, err)
			continue
		}
		loadedOK[mod.ID] = true
	}

	// Bootstrap pass. Only mods that actually completed the load pass are
	// eligible, per spec §3's bootstrapped ⇒ loaded invariant.
	for _, mod := range ordered {
		if mod.ModType != manifest.Bootstrap {
			continue
		}
		if !loadedOK[mod.ID] {
			m.report(mod.ID, staminalerr.Newf(staminalerr.RuntimeNotRegistered,
				"mod %q did not complete the load pass, skipping bootstrap", mod.ID))
			continue
		}
		if err := bootstrap(mod.ID); err != nil {
			if side == Server {
				return err
			}
			m.report(mod.ID, err)
			continue
		}
		if err := m.registry.SetBootstrapped(mod.ID); err != nil {
			if side == Server {
				return err
			}
			m.report(mod.ID, err)
		}
	}

	return nil
}

func (m *Manager) loadAndAttach(mod *manifest.Mod, attach AttachHook) error {
	absolutePath := filepath.Join(mod.Dir, mod.EntryPoint)
	if err := m.LoadMod(mod.ID, absolutePath); err != nil {
		return err
	}
	return attach(mod.ID)
}

func (m *Manager) report(modID string, err error) {
	m.log.Warn("lifecycle step failed", logging.String("mod", modID), logging.Err(err))
	if m.notify != nil {
		m.notify(modID, err)
	}
}
