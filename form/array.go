package form

import (
	"fmt"
	"strings"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/compute"
	"github.com/eventara/metaform/meta"
	"github.com/google/uuid"
)

// ArrayField manages one array-typed field: an ordered sequence of
// sub-records, each described by the nested field list of arrayConfig.
//
// Every mutation reads the latest committed sequence from the owning form
// and writes the result back through it. Nothing here captures a slice at
// construction time, so interleaved asynchronous write-backs (the geocoding
// fan-out racing a keystroke edit) always land on the freshest state and the
// last write wins.
type ArrayField struct {
	form  *Form
	field meta.FieldMetadata
	cfg   meta.ArrayConfig

	// keys gives each item a stable identity for list rendering: the
	// sub-record's own id when present, else a synthetic key minted at
	// insertion. Collapse state hangs off these keys, never off positions.
	keys      []string
	collapsed map[string]bool
}

func newArrayField(f *Form, field meta.FieldMetadata) *ArrayField {
	cfg := meta.ArrayConfig{}
	if field.ArrayConfig != nil {
		cfg = *field.ArrayConfig
	}
	a := &ArrayField{form: f, field: field, cfg: cfg, collapsed: map[string]bool{}}
	a.syncKeys()
	return a
}

// syncKeys realigns the identity keys with the live sequence. The sequence can
// grow or shrink outside the engine (a hydrate landing items, a direct Set on
// the array field), so every identity-dependent operation resynchronizes
// before indexing. Existing keys keep their identity; new tail items get
// theirs from their id, else a fresh synthetic one.
func (a *ArrayField) syncKeys() {
	items := a.Items()
	if len(a.keys) > len(items) {
		a.keys = a.keys[:len(items)]
	}
	for _, item := range items[len(a.keys):] {
		a.keys = append(a.keys, identityOf(item))
	}
}

func identityOf(item metaform.Record) string {
	if id, ok := metaform.RelationID(item["id"]); ok {
		return fmt.Sprintf("id:%v", id)
	}
	return uuid.NewString()
}

// Items returns the latest committed sequence.
func (a *ArrayField) Items() []metaform.Record {
	return a.form.rec.Items(a.field.Name)
}

// Len returns the current item count.
func (a *ArrayField) Len() int {
	return len(a.Items())
}

// AtCeiling reports whether the sequence reached maxItems (0 = unbounded).
func (a *ArrayField) AtCeiling() bool {
	return a.cfg.MaxItems > 0 && a.Len() >= a.cfg.MaxItems
}

// AtFloor reports whether the sequence is at or below minItems. The floor
// only gates the remove affordance; it is not a save-time validation.
func (a *ArrayField) AtFloor() bool {
	return a.Len() <= a.cfg.MinItems
}

// CanRemove is the UI affordance for showing the remove control.
func (a *ArrayField) CanRemove() bool {
	return !a.AtFloor()
}

// ItemFields returns the nested field list, excluding any field that names
// the parent entity: the parent linkage is injected by the orchestrator and
// never edited inside the sub-form.
func (a *ArrayField) ItemFields() []meta.FieldMetadata {
	var fields []meta.FieldMetadata
	for _, f := range a.cfg.Fields {
		if a.form.parentLinked(f) {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// AddItem appends a sub-record seeded from each nested field's defaultValue
// (or a type-appropriate zero value). It is a no-op at the ceiling.
func (a *ArrayField) AddItem() bool {
	if a.AtCeiling() {
		return false
	}
	a.syncKeys()
	item := seedItem(a.cfg.Fields)
	compute.Pass(item, a.cfg.Fields)
	items := append(a.Items(), item)
	a.keys = append(a.keys, uuid.NewString())
	a.form.commitArray(a.field.Name, items)
	return true
}

// RemoveItem removes the sub-record at the given position. Out-of-range
// indexes are refused; the minItems floor is enforced only through
// CanRemove, not here.
func (a *ArrayField) RemoveItem(index int) bool {
	a.syncKeys()
	items := a.Items()
	if index < 0 || index >= len(items) {
		return false
	}
	delete(a.collapsed, a.keys[index])
	a.keys = append(a.keys[:index], a.keys[index+1:]...)
	next := make([]metaform.Record, 0, len(items)-1)
	next = append(next, items[:index]...)
	next = append(next, items[index+1:]...)
	a.form.commitArray(a.field.Name, next)
	return true
}

// UpdateField replaces one field of one sub-record, then re-derives that
// item's computed fields.
func (a *ArrayField) UpdateField(index int, name string, value any) {
	a.UpdateFields(index, map[string]any{name: value})
}

// UpdateFields applies a batch patch to one sub-record. The sequence is read
// fresh at call time and the patched item recommitted, so concurrent-looking
// chained callbacks keep last-write-wins ordering.
func (a *ArrayField) UpdateFields(index int, patch map[string]any) {
	items := a.Items()
	if index < 0 || index >= len(items) {
		return
	}
	item := items[index]
	changed := make([]string, 0, len(patch))
	for name, value := range patch {
		item[name] = value
		changed = append(changed, name)
	}
	compute.PassFor(item, a.cfg.Fields, changed...)
	a.form.commitArray(a.field.Name, items)
}

// Key returns the stable render identity of the item at the given position.
func (a *ArrayField) Key(index int) string {
	a.syncKeys()
	if index < 0 || index >= len(a.keys) {
		return ""
	}
	return a.keys[index]
}

// Collapse toggles one item's collapsed state. The state survives edits and
// removals of other items because it is keyed by identity, not position.
func (a *ArrayField) Collapse(index int, collapsed bool) {
	if key := a.Key(index); key != "" {
		a.collapsed[key] = collapsed
	}
}

// IsCollapsed reports one item's collapse state.
func (a *ArrayField) IsCollapsed(index int) bool {
	return a.collapsed[a.Key(index)]
}

// ItemLabel renders the configured label template for one item, with
// "{index}" replaced by the 1-based position.
func (a *ArrayField) ItemLabel(index int) string {
	tpl := a.cfg.ItemLabel
	if tpl == "" {
		tpl = a.field.Label + " {index}"
	}
	return strings.ReplaceAll(tpl, "{index}", fmt.Sprintf("%d", index+1))
}

// Controls resolves the renderable controls of one sub-record, wiring their
// write-backs through the array engine so every edit re-reads the latest
// sequence.
func (a *ArrayField) Controls(index int) []Control {
	items := a.Items()
	if index < 0 || index >= len(items) {
		return nil
	}
	item := items[index]
	var controls []Control
	for _, f := range a.ItemFields() {
		if !f.IsVisible() || !meta.ShowIf(f.ShowIf, item) {
			continue
		}
		ctrl := Resolve(f, item, a.form.sess)
		i := index
		ctrl.Write = func(name string, value any) { a.UpdateField(i, name, value) }
		ctrl.BatchWrite = func(patch map[string]any) { a.UpdateFields(i, patch) }
		controls = append(controls, ctrl)
	}
	return controls
}

// seedItem builds a fresh sub-record: defaultValue when declared, else false
// for booleans, an empty sequence for nested arrays, the empty string for
// everything else.
func seedItem(fields []meta.FieldMetadata) metaform.Record {
	item := metaform.Record{}
	for _, f := range fields {
		if f.DefaultValue != nil {
			item[f.Name] = f.DefaultValue
			continue
		}
		switch f.Type {
		case meta.TypeBoolean:
			item[f.Name] = false
		case meta.TypeArray:
			item[f.Name] = []metaform.Record{}
		default:
			item[f.Name] = ""
		}
	}
	return item
}
