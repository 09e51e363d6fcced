// Package locale implements the hierarchical message lookup backing the
// Locale global script object: mod's locale for the current language, then
// the mod's own fallback language, then the global default, then the raw
// message id, per spec §4. Fluent (.ftl) syntax itself is out of scope — a
// Parser is injected so the lookup logic is exercised independently of any
// concrete file format.
package locale

import (
	"sync"

	"github.com/staminal/host/internal/staminalerr"
)

// Parser turns the raw bytes of one locale file into a flat id -> message
// table. Left pluggable since Fluent syntax parsing is not this package's
// concern.
type Parser interface {
	Parse(data []byte) (map[string]string, error)
}

// Catalog holds one mod's messages, keyed by language tag.
type Catalog struct {
	Fallback string // the mod's own fallback language tag
	byLang   map[string]map[string]string
}

func newCatalog(fallback string) *Catalog {
	return &Catalog{Fallback: fallback, byLang: make(map[string]map[string]string)}
}

// Registry is the process-wide Locale layer: one Catalog per mod, plus a
// global default catalog used when no mod-specific entry exists.
type Registry struct {
	mu      sync.RWMutex
	parser  Parser
	lang    string
	global  *Catalog
	catalog map[string]*Catalog // mod id -> catalog
}

// New builds a Registry using parser to decode locale files and lang as the
// active language tag.
func New(parser Parser, lang string) *Registry {
	return &Registry{
		parser:  parser,
		lang:    lang,
		global:  newCatalog(""),
		catalog: make(map[string]*Catalog),
	}
}

// SetLanguage switches the active language tag used by Lookup.
func (r *Registry) SetLanguage(lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lang = lang
}

// LoadModLocale parses data as modID's messages for lang, recording
// fallback as the mod's own fallback language if this is the mod's first
// loaded locale file.
func (r *Registry) LoadModLocale(modID, lang, fallback string, data []byte) error {
	messages, err := r.parser.Parse(data)
	if err != nil {
		return staminalerr.Wrap(staminalerr.ManifestInvalid, err, "parsing locale file for mod "+modID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cat, ok := r.catalog[modID]
	if !ok {
		cat = newCatalog(fallback)
		r.catalog[modID] = cat
	}
	cat.byLang[lang] = messages
	return nil
}

// LoadGlobalLocale parses data into the global default catalog for lang.
func (r *Registry) LoadGlobalLocale(lang string, data []byte) error {
	messages, err := r.parser.Parse(data)
	if err != nil {
		return staminalerr.Wrap(staminalerr.ManifestInvalid, err, "parsing global locale file")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global.byLang[lang] = messages
	return nil
}

// Lookup resolves id for modID following the hierarchy: the mod's catalog
// for the active language, then the mod's own fallback language, then the
// global default's active language, then the raw id wrapped in brackets.
// Bidi control characters are stripped from whatever is returned.
func (r *Registry) Lookup(modID, id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cat, ok := r.catalog[modID]; ok {
		if msgs, ok := cat.byLang[r.lang]; ok {
			if v, ok := msgs[id]; ok {
				return stripBidi(v)
			}
		}
		if cat.Fallback != "" && cat.Fallback != r.lang {
			if msgs, ok := cat.byLang[cat.Fallback]; ok {
				if v, ok := msgs[id]; ok {
					return stripBidi(v)
				}
			}
		}
	}

	if msgs, ok := r.global.byLang[r.lang]; ok {
		if v, ok := msgs[id]; ok {
			return stripBidi(v)
		}
	}

	return "[" + id + "]"
}

// stripBidi removes Unicode bidirectional control characters (embedding,
// override, and isolate marks) so translated strings cannot smuggle
// directionality attacks into rendered UI text.
func stripBidi(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if isBidiControl(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func isBidiControl(r rune) bool {
	switch r {
	case '‎', '‏', // LRM, RLM
		'‪', '‫', '‬', '‭', '‮', // LRE, RLE, PDF, LRO, RLO
		'⁦', '⁧', '⁨', '⁩': // LRI, RLI, FSI, PDI
		return true
	}
	return false
}
