// Package metaform is the shared vocabulary of the metadata-driven CRUD
// engine: the dynamic Record type every layer reads and writes, and the
// field-keyed error collection used by validation and submission.
package metaform

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tidwall/gjson"
)

// Record is one entity instance: a mapping from field name to value. A value
// may be a primitive, a relationship reference (bare id or {id,label} map),
// or, for array fields, an ordered sequence of sub-records.
type Record map[string]any

// FromJSON parses a JSON object into a Record. Nested objects become
// map[string]any and nested arrays []any, exactly as the backend sent them.
func FromJSON(json string) Record {
	v, ok := gjson.Parse(json).Value().(map[string]any)
	if !ok {
		return Record{}
	}
	return Record(v)
}

// Fields returns the record's top-level field names in deterministic order.
func (r Record) Fields() []string {
	ks := make([]string, 0, len(r))
	for k := range r {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Clone returns a deep copy of the record. Nested maps and slices are copied
// so edits on the clone never leak into the original snapshot.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return (Record(t)).Clone()
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	case []Record:
		cp := make([]Record, len(t))
		for i, e := range t {
			cp[i] = e.Clone()
		}
		return cp
	default:
		return v
	}
}

// get retrieves a value and asserts its type. It returns an empty Option when
// the path is absent and panics when the value exists with the wrong type.
// Dot notation traverses nested objects and array indexes ("items.0.price").
func get[T any](r Record, name string) mo.Option[T] {
	parts := strings.Split(name, ".")
	var current any = r
	for _, part := range parts {
		if current == nil {
			return mo.None[T]()
		}
		switch m := current.(type) {
		case Record:
			next, ok := m[part]
			if !ok {
				return mo.None[T]()
			}
			current = next
			continue
		case map[string]any:
			next, ok := m[part]
			if !ok {
				return mo.None[T]()
			}
			current = next
			continue
		}
		val := reflect.ValueOf(current)
		if val.Kind() == reflect.Slice {
			index, err := strconv.Atoi(part)
			lo.Assertf(err == nil, "metaform: path part '%s' in '%s' is not a valid slice index", part, name)
			if index < 0 || index >= val.Len() {
				return mo.None[T]()
			}
			current = val.Index(index).Interface()
			continue
		}
		return mo.None[T]()
	}
	typed, ok := current.(T)
	lo.Assertf(ok, "metaform: field '%s' has wrong type: expected %T, got %T", name, *new(T), current)
	return mo.Some(typed)
}

// Get returns the raw value at the given (possibly dotted) path.
func (r Record) Get(name string) mo.Option[any] {
	return get[any](r, name)
}

// String returns the string value at the given path.
// It panics if the field exists but is not a string.
func (r Record) String(name string) mo.Option[string] {
	return get[string](r, name)
}

// Bool returns the bool value at the given path.
// It panics if the field exists but is not a bool.
func (r Record) Bool(name string) mo.Option[bool] {
	return get[bool](r, name)
}

// Float returns the value at the given path coerced to float64. Unlike the
// strict getters it accepts any numeric type and numeric strings, since JSON
// decoding and user edits disagree on the concrete type of "a number".
func (r Record) Float(name string) mo.Option[float64] {
	v := r.Get(name)
	if v.IsAbsent() {
		return mo.None[float64]()
	}
	if f, ok := AsFloat(v.MustGet()); ok {
		return mo.Some(f)
	}
	return mo.None[float64]()
}

// AsFloat coerces a dynamic value into a float64 where a sensible numeric
// reading exists.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Truthy reports whether a dynamic value counts as "set" for conditional
// visibility: true booleans, non-zero numbers, non-empty strings, non-empty
// collections.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []Record:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case Record:
		return len(t) > 0
	default:
		if f, ok := AsFloat(v); ok {
			return f != 0
		}
		return true
	}
}

// RelationID extracts the identifier carried by a relationship-shaped value:
// a bare id (number or string) passes through, an {id,...} object yields its
// id member. The second return reports whether an id was found.
func RelationID(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		id, ok := t["id"]
		return id, ok && id != nil
	case Record:
		id, ok := t["id"]
		return id, ok && id != nil
	case string:
		return t, t != ""
	default:
		if _, ok := AsFloat(v); ok {
			return v, true
		}
		return nil, false
	}
}

// IDObject wraps a bare identifier into the {id} relationship-object form the
// backend expects on writes.
func IDObject(id any) map[string]any {
	return map[string]any{"id": id}
}

// Items reads an array field as a sequence of sub-records, tolerating both
// the []Record shape produced by local edits and the []any shape produced by
// JSON decoding.
func (r Record) Items(name string) []Record {
	raw, ok := r[name]
	if !ok || raw == nil {
		return nil
	}
	switch t := raw.(type) {
	case []Record:
		return t
	case []any:
		items := make([]Record, 0, len(t))
		for _, e := range t {
			switch m := e.(type) {
			case Record:
				items = append(items, m)
			case map[string]any:
				items = append(items, Record(m))
			}
		}
		return items
	default:
		return nil
	}
}

// FieldErrors is a field-keyed error collection: one message per invalid
// field. It is the single error-display channel shared by client validation,
// business-rule rejections, and server-side validation responses.
type FieldErrors map[string]string

// Error implements the error interface, formatting all contained messages.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, field := range e.Fields() {
		b.WriteString(fmt.Sprintf(" %s: %s;", field, e[field]))
	}
	return b.String()
}

// Add records a message for a field, keeping the first message when one is
// already present so earlier (higher-priority) rules win.
func (e FieldErrors) Add(field, message string) {
	if message == "" {
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Fields returns the invalid field names in deterministic order.
func (e FieldErrors) Fields() []string {
	ks := make([]string, 0, len(e))
	for k := range e {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Err returns the collection as an error, or nil when it is empty.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
