package meta

import (
	"strings"

	metaform "github.com/eventara/metaform"
	"github.com/tidwall/match"
)

// ShowIf evaluates a field's conditional-visibility expression against the
// live record. Supported forms:
//
//	"field"          field is truthy
//	"!field"         field is absent or falsy
//	"field=value"    field equals value
//	"field!=value"   field differs from value
//
// Values may be quoted; numeric comparison is used when both sides parse as
// numbers, and a value containing '*' or '?' is matched as a glob against
// string fields. An empty expression is always visible; a malformed one is
// treated as visible so one bad descriptor never hides the rest of the form.
func ShowIf(expr string, r metaform.Record) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	if name, value, found := strings.Cut(expr, "!="); found {
		return !equalsField(r, strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if name, value, found := strings.Cut(expr, "="); found {
		return equalsField(r, strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if negated, ok := strings.CutPrefix(expr, "!"); ok {
		return !truthyField(r, strings.TrimSpace(negated))
	}
	return truthyField(r, expr)
}

func truthyField(r metaform.Record, name string) bool {
	v := r.Get(name)
	return v.IsPresent() && metaform.Truthy(v.MustGet())
}

func equalsField(r metaform.Record, name, want string) bool {
	want = strings.Trim(want, `"'`)
	v := r.Get(name)
	if v.IsAbsent() {
		return want == ""
	}
	got := v.MustGet()
	if gf, ok := metaform.AsFloat(got); ok {
		if wf, ok := metaform.AsFloat(want); ok {
			return gf == wf
		}
	}
	switch t := got.(type) {
	case bool:
		return (t && want == "true") || (!t && want == "false")
	case string:
		if strings.ContainsAny(want, "*?") {
			return match.Match(t, want)
		}
		return t == want
	default:
		return false
	}
}
