// Package compute holds the registry of named pure derivation functions
// backing computed fields. A computed field's value is re-derived, never
// user-entered: the form runs a recomputation pass after every state change
// and overwrites a field only when the derived result differs, so the pass
// reaches a fixed point in one step.
package compute

import (
	"slices"
	"sync"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/meta"
	"github.com/samber/lo"
)

// Func derives a display value from the current record. Implementations must
// be pure: same record in, same string out, no side effects.
type Func func(metaform.Record) string

var (
	mu       sync.RWMutex
	registry = map[string]Func{}
)

// Register binds a derivation function to a name. Registering the same name
// twice is a programmer error and panics.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	_, exists := registry[name]
	lo.Assertf(!exists, "compute: duplicate derivation '%s'", name)
	registry[name] = fn
}

// Lookup resolves a derivation by name.
func Lookup(name string) (Func, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// DependsOn reports whether a computed field must be re-derived after the
// given field changed. A field with no declared dependencies recomputes on
// every change.
func DependsOn(f meta.FieldMetadata, changed string) bool {
	if f.Computed == "" {
		return false
	}
	if len(f.ComputedDependencies) == 0 {
		return true
	}
	return slices.Contains(f.ComputedDependencies, changed)
}

// Pass runs one recomputation sweep over the given fields, writing each
// computed field's derived value into the record only when it differs from
// the current one. It reports whether anything changed; running it again
// immediately is a no-op.
func Pass(rec metaform.Record, fields []meta.FieldMetadata) bool {
	changed := false
	for _, f := range fields {
		if derive(rec, f) {
			changed = true
		}
	}
	return changed
}

// PassFor runs a sweep restricted to the computed fields that depend on any of
// the given changed field names. With no names it sweeps everything, like
// Pass. This is the edit-time path: a single keystroke only re-derives what it
// can actually affect.
func PassFor(rec metaform.Record, fields []meta.FieldMetadata, changed ...string) bool {
	if len(changed) == 0 {
		return Pass(rec, fields)
	}
	out := false
	for _, f := range fields {
		if !lo.SomeBy(changed, func(name string) bool { return DependsOn(f, name) }) {
			continue
		}
		if derive(rec, f) {
			out = true
		}
	}
	return out
}

// derive re-derives one computed field, writing only on change.
func derive(rec metaform.Record, f meta.FieldMetadata) bool {
	if f.Computed == "" {
		return false
	}
	fn, ok := Lookup(f.Computed)
	if !ok {
		return false
	}
	derived := fn(rec)
	current, _ := rec[f.Name].(string)
	if current == derived {
		return false
	}
	rec[f.Name] = derived
	return true
}
