package graphic

import (
	"sort"
	"time"
)

// SystemFn is a custom system's per-tick logic, run once per matching
// entity in (system.order, entity_id) order.
type SystemFn func(e *Entity, dt time.Duration)

// System is a declared custom system.
type System struct {
	Name    string
	Query   []string // required component names
	Order   int
	Enabled bool
	Fn      SystemFn
}

// SystemRegistry holds every declared custom system, keyed by name.
type SystemRegistry struct {
	systems map[string]*System
}

func newSystemRegistry() *SystemRegistry {
	return &SystemRegistry{systems: make(map[string]*System)}
}

func (r *SystemRegistry) Declare(s *System) {
	if !s.Enabled {
		s.Enabled = true
	}
	r.systems[s.Name] = s
}

func (r *SystemRegistry) SetEnabled(name string, enabled bool) {
	if s, ok := r.systems[name]; ok {
		s.Enabled = enabled
	}
}

func (r *SystemRegistry) Remove(name string) {
	delete(r.systems, name)
}

// ordered returns enabled systems sorted by Order (ties broken by Name), for
// deterministic per-tick execution.
func (r *SystemRegistry) ordered() []*System {
	out := make([]*System, 0, len(r.systems))
	for _, s := range r.systems {
		if s.Enabled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Tick runs every enabled system once, in (order, entity_id) order, against
// the entities matching its query.
func (r *SystemRegistry) Tick(w *World, dt time.Duration) {
	for _, s := range r.ordered() {
		for _, e := range w.All() {
			if e.Has(s.Query...) {
				s.Fn(e, dt)
			}
		}
	}
}

// RunBuiltins applies the fixed built-in behaviours from spec §4.7 — pure
// functions of their configured fields and the frame delta — to every
// matching entity, in a fixed, deterministic relative order.
func RunBuiltins(w *World, dt time.Duration) {
	seconds := dt.Seconds()
	for _, e := range w.All() {
		applyVelocity(e, seconds)
		applyGravity(e, seconds)
		applyFriction(e, seconds)
		regenerateOverTime(e, seconds)
		decayOverTime(e, seconds)
	}
	despawnWhenZero(w)
}

func applyVelocity(e *Entity, dt float64) {
	vel, ok := e.Components["Velocity"]
	pos, hasPos := e.Components["Position"]
	if !ok || !hasPos {
		return
	}
	pos["x"] = toFloat(pos["x"]) + toFloat(vel["dx"])*dt
	pos["y"] = toFloat(pos["y"]) + toFloat(vel["dy"])*dt
}

func applyGravity(e *Entity, dt float64) {
	g, ok := e.Components["Gravity"]
	vel, hasVel := e.Components["Velocity"]
	if !ok || !hasVel {
		return
	}
	vel["dy"] = toFloat(vel["dy"]) + toFloat(g["acceleration"])*dt
}

func applyFriction(e *Entity, dt float64) {
	f, ok := e.Components["Friction"]
	vel, hasVel := e.Components["Velocity"]
	if !ok || !hasVel {
		return
	}
	coeff := toFloat(f["coefficient"])
	vel["dx"] = dampen(toFloat(vel["dx"]), coeff, dt)
	vel["dy"] = dampen(toFloat(vel["dy"]), coeff, dt)
}

func dampen(v, coeff, dt float64) float64 {
	reduced := v - v*coeff*dt
	if (v > 0 && reduced < 0) || (v < 0 && reduced > 0) {
		return 0
	}
	return reduced
}

func regenerateOverTime(e *Entity, dt float64) {
	r, ok := e.Components["RegenerateOverTime"]
	health, hasHealth := e.Components["Health"]
	if !ok || !hasHealth {
		return
	}
	max := toFloat(health["max"])
	current := toFloat(health["current"]) + toFloat(r["rate"])*dt
	if current > max {
		current = max
	}
	health["current"] = current
}

func decayOverTime(e *Entity, dt float64) {
	d, ok := e.Components["DecayOverTime"]
	target, hasTarget := e.Components[stringOr(d["component"], "")]
	if !ok || !hasTarget {
		return
	}
	field := stringOr(d["field"], "value")
	target[field] = toFloat(target[field]) - toFloat(d["rate"])*dt
}

func despawnWhenZero(w *World) {
	var toDespawn []uint64
	for _, e := range w.All() {
		cfg, ok := e.Components["DespawnWhenZero"]
		if !ok {
			continue
		}
		comp, hasComp := e.Components[stringOr(cfg["component"], "")]
		if !hasComp {
			continue
		}
		field := stringOr(cfg["field"], "value")
		if toFloat(comp[field]) <= 0 {
			toDespawn = append(toDespawn, e.ID)
		}
	}
	for _, id := range toDespawn {
		w.Despawn(id)
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
