// Package modreg implements the Mod Registry (C3): the thread-safe store of
// ModInfo keyed by id plus the alias table, per spec §4.3. Grounded on the
// teacher's ModuleRegistry (kernel/threads/registry/loader.go) — an
// RWMutex-guarded map with Register/Get/List accessors — generalised from
// SAB-backed module discovery to manifest-driven mod bookkeeping.
package modreg

import (
	"sync"

	"github.com/staminal/host/internal/staminalerr"
)

// LoadState tracks a mod's position in the three-pass lifecycle
// (alias -> load -> bootstrap) described in spec §4.9.
type LoadState int

const (
	StateRegistered LoadState = iota
	StateLoaded
	StateBootstrapped
)

// ModInfo is the registry's record for one mod.
type ModInfo struct {
	ID           string
	Path         string
	Priority     int
	Version      string
	Dependencies map[string]string // dep id -> semver constraint
	State        LoadState
}

// Registry is the process-wide, mutex-guarded Mod Registry + Alias Table.
//
// The Alias Table maps mod_id -> absolute entry path (spec §3), populated
// before any script loads so "@mod-id/..." imports resolve uniformly.
type Registry struct {
	mu      sync.RWMutex
	mods    map[string]*ModInfo
	aliases map[string]string // mod id -> absolute entry path

	// consumed records mod ids whose alias has already been resolved by an
	// executing import, so a later RegisterAlias that would shadow it can
	// be flagged, per spec §4.3.
	consumed map[string]bool
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		mods:     make(map[string]*ModInfo),
		aliases:  make(map[string]string),
		consumed: make(map[string]bool),
	}
}

// RegisterInfo inserts or replaces a mod's ModInfo.
func (r *Registry) RegisterInfo(info *ModInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods[info.ID] = info
}

// RegisterAlias binds modID's absolute entry path. Permitted after scripts
// have started loading, but if modID's alias was already consumed by an
// executing import and now resolves somewhere else, the caller is told so
// the mismatch can be surfaced at the next import instead of silently
// shadowing it.
func (r *Registry) RegisterAlias(modID, absolutePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, wasConsumed := r.aliases[modID]
	r.aliases[modID] = absolutePath

	if wasConsumed && r.consumed[modID] && existing != absolutePath {
		return staminalerr.Newf(staminalerr.ManifestInvalid,
			"alias for mod %q reassigned from %q to %q after being consumed by an executing import", modID, existing, absolutePath)
	}
	return nil
}

// MarkAliasConsumed records that modID's alias has been resolved by an
// in-flight import, so future reassignment is flagged.
func (r *Registry) MarkAliasConsumed(modID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumed[modID] = true
}

// ResolveAlias returns the absolute entry path bound to modID, if any.
func (r *Registry) ResolveAlias(modID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.aliases[modID]
	return path, ok
}

// SetLoaded advances modID's state to StateLoaded.
func (r *Registry) SetLoaded(modID string) error {
	return r.setState(modID, StateLoaded)
}

// SetBootstrapped advances modID's state to StateBootstrapped.
func (r *Registry) SetBootstrapped(modID string) error {
	return r.setState(modID, StateBootstrapped)
}

func (r *Registry) setState(modID string, state LoadState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mods[modID]
	if !ok {
		return staminalerr.Newf(staminalerr.ManifestNotFound, "mod %q is not registered", modID)
	}
	m.State = state
	return nil
}

// List returns every registered mod, in no particular order.
func (r *Registry) List() []*ModInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModInfo, 0, len(r.mods))
	for _, m := range r.mods {
		out = append(out, m)
	}
	return out
}

// Lookup returns the ModInfo for id, if registered.
func (r *Registry) Lookup(id string) (*ModInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mods[id]
	return m, ok
}
