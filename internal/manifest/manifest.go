// Package manifest implements the Manifest + Dependency Resolver (C4):
// manifest resolution, semver-constraint validation against the pseudo-ids
// @client/@server/@game and real mod dependencies, and depth-first
// dependency collection with full-cycle-path reporting and a deterministic
// (priority, id) ordering, per spec §4.4.
//
// Grounded on the teacher's ModuleRegistry.GetDependencyOrder
// (kernel/threads/registry/loader.go), whose Kahn's-algorithm shape only
// reports "a cycle exists" — it cannot name the participants. Dependency
// cycles here are instead found by depth-first colour marking, which
// recovers the full cycle path spec §7/§8 scenario 5 requires. Concurrent
// manifest loading uses golang.org/x/sync/errgroup + semaphore as a bounded
// fan-out; the teacher has no call site of either package.
package manifest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/staminal/host/internal/staminalerr"
)

// Side is the execution environment a mod is being resolved for.
type Side string

const (
	Client Side = "client"
	Server Side = "server"
)

// pseudo dependency ids, never treated as real mods.
const (
	PseudoClient = "@client"
	PseudoServer = "@server"
	PseudoGame   = "@game"
)

// ModType classifies a mod per spec §3.
type ModType string

const (
	Bootstrap ModType = "bootstrap"
	Library   ModType = "library"
)

// rawManifest mirrors the on-disk JSON schema from spec §6.
type rawManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	ModType      ModType           `json:"mod_type"`
	EntryPoint   string            `json:"entry_point"`
	Priority     int               `json:"priority"`
	ExecuteOn    interface{}       `json:"execute_on"` // string or []string
	Dependencies map[string]string `json:"dependencies"`
}

// Mod is the parsed, validated manifest of one mod.
type Mod struct {
	ID           string
	Dir          string
	Version      Version
	ModType      ModType
	EntryPoint   string
	Priority     int
	ExecuteOn    []Side
	Dependencies map[string]string // id/pseudo-id -> constraint string
}

// RunsOn reports whether the mod executes on the given side.
func (m *Mod) RunsOn(side Side) bool {
	for _, s := range m.ExecuteOn {
		if s == side {
			return true
		}
	}
	return false
}

// ResolveManifestPath returns the first existing manifest among
// <mod_dir>/<side>/manifest.json then <mod_dir>/manifest.json.
func ResolveManifestPath(modDir string, side Side) (string, error) {
	sided := filepath.Join(modDir, string(side), "manifest.json")
	if _, err := os.Stat(sided); err == nil {
		return sided, nil
	}
	flat := filepath.Join(modDir, "manifest.json")
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	return "", staminalerr.Newf(staminalerr.ManifestNotFound, "no manifest found under %s", modDir)
}

// LoadManifest resolves and parses a mod's manifest for the given side.
func LoadManifest(modDir string, side Side) (*Mod, error) {
	path, err := ResolveManifestPath(modDir, side)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.ManifestInvalid, err, "reading manifest")
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, staminalerr.Wrap(staminalerr.ManifestInvalid, err, "parsing manifest JSON")
	}

	ver, err := ParseVersion(raw.Version)
	if err != nil {
		return nil, err
	}

	mod := &Mod{
		ID:           raw.Name,
		Dir:          modDir,
		Version:      ver,
		ModType:      raw.ModType,
		EntryPoint:   raw.EntryPoint,
		Priority:     raw.Priority,
		Dependencies: raw.Dependencies,
		ExecuteOn:    parseExecuteOn(raw.ExecuteOn),
	}
	return mod, nil
}

func parseExecuteOn(v interface{}) []Side {
	switch t := v.(type) {
	case string:
		return []Side{Side(t)}
	case []interface{}:
		out := make([]Side, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, Side(s))
			}
		}
		return out
	default:
		return []Side{Client, Server}
	}
}

// EnvVersions carries the current environment's versions for the
// @client/@server/@game pseudo-dependencies.
type EnvVersions struct {
	Client Version
	Server Version
	Game   Version
}

// LoadManifestsConcurrently resolves manifests for every mod directory
// under a bounded concurrency limit (errgroup for the first error, a
// weighted semaphore for the bound).
func LoadManifestsConcurrently(ctx context.Context, modDirs []string, side Side, maxConcurrency int64) (map[string]*Mod, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	g, ctx := errgroup.WithContext(ctx)

	results := make([]*Mod, len(modDirs))
	for i, dir := range modDirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			mod, err := LoadManifest(dir, side)
			if err != nil {
				return err
			}
			results[i] = mod
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Mod, len(results))
	for _, m := range results {
		out[m.ID] = m
	}
	return out, nil
}

// ValidateDependencies checks semver constraints for @server/@game/@client
// (skipping the pseudo-id matching the current side) and for every listed
// mod dependency against the registry.
func ValidateDependencies(mod *Mod, side Side, registry map[string]*Mod, env EnvVersions) error {
	for depID, constraintStr := range mod.Dependencies {
		if isPseudo(depID) {
			if pseudoMatchesSide(depID, side) {
				continue // skip the pseudo-id matching the current side
			}
			var envVer Version
			switch depID {
			case PseudoClient:
				envVer = env.Client
			case PseudoServer:
				envVer = env.Server
			case PseudoGame:
				envVer = env.Game
			}
			c, err := ParseConstraint(constraintStr)
			if err != nil {
				return err
			}
			if !c.Satisfies(envVer) {
				return staminalerr.Newf(staminalerr.DependencyUnsatisfied,
					"mod %q requires %s %s, environment has %s", mod.ID, depID, constraintStr, envVer)
			}
			continue
		}

		dep, ok := registry[depID]
		if !ok {
			return staminalerr.Newf(staminalerr.DependencyUnsatisfied, "mod %q depends on unregistered mod %q", mod.ID, depID)
		}
		c, err := ParseConstraint(constraintStr)
		if err != nil {
			return err
		}
		if !c.Satisfies(dep.Version) {
			return staminalerr.Newf(staminalerr.DependencyUnsatisfied,
				"mod %q requires %s %s, found %s", mod.ID, depID, constraintStr, dep.Version)
		}
	}
	return nil
}

func isPseudo(id string) bool {
	return id == PseudoClient || id == PseudoServer || id == PseudoGame
}

func pseudoMatchesSide(id string, side Side) bool {
	switch id {
	case PseudoClient:
		return side == Client
	case PseudoServer:
		return side == Server
	default:
		return false
	}
}

// dfsColour is the white/grey/black marking used to find a full cycle path,
// something Kahn's algorithm's in-degree counting cannot report.
type dfsColour int

const (
	white dfsColour = iota
	grey
	black
)

// CollectDependencies performs depth-first traversal from the seed set,
// returning the reachable closure stable-sorted by (priority, id). A cycle
// is reported fatally with the full participating path.
func CollectDependencies(seeds []string, registry map[string]*Mod) ([]*Mod, error) {
	colour := make(map[string]dfsColour, len(registry))
	var path []string
	visited := make(map[string]*Mod)

	var visit func(id string) error
	visit = func(id string) error {
		if isPseudo(id) {
			return nil
		}
		switch colour[id] {
		case black:
			return nil
		case grey:
			cycle := append(append([]string{}, path...), id)
			return staminalerr.CycleError(cycleFrom(cycle, id))
		}

		mod, ok := registry[id]
		if !ok {
			return staminalerr.Newf(staminalerr.DependencyUnsatisfied, "unresolved dependency %q", id)
		}

		colour[id] = grey
		path = append(path, id)

		for depID := range mod.Dependencies {
			if err := visit(depID); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		colour[id] = black
		visited[id] = mod
		return nil
	}

	for _, seed := range seeds {
		if err := visit(seed); err != nil {
			return nil, err
		}
	}

	out := make([]*Mod, 0, len(visited))
	for _, m := range visited {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// cycleFrom trims path down to the point where repeatID first appears, so
// the reported cycle names only its actual participants.
func cycleFrom(path []string, repeatID string) []string {
	for i, id := range path {
		if id == repeatID {
			return path[i:]
		}
	}
	return path
}
