// Package form is the write-mode engine: it maps field metadata to renderable
// control specifications, manages array sub-forms, and owns one record's full
// hydrate -> edit -> validate -> submit lifecycle.
package form

import (
	"sort"
	"time"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/mask"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/session"
	"github.com/jinzhu/now"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// WriteFunc writes one field edit back into the orchestrator's record.
type WriteFunc func(field string, value any)

// BatchWriteFunc applies several field writes atomically. It exists for the
// address control, whose one geocoding result fans out to many fields.
type BatchWriteFunc func(patch map[string]any)

// Control is the renderer-facing specification of one interactive control:
// which kind to render, its current display value, and its constraints.
// The orchestrator attaches the write-back handlers.
type Control struct {
	Field    meta.FieldMetadata
	Kind     meta.Kind
	Mask     mask.Kind
	Value    any
	Disabled bool
	Required bool
	Options  []meta.Choice
	// Entity is the resolved picker configuration for relationship fields,
	// synthesized from Relationship when no explicit entityConfig exists.
	Entity *meta.EntityConfig
	// MaxDate caps date pickers; birth dates never exceed today.
	MaxDate time.Time
	// MinYear extends the year range for birth-date pickers.
	MinYear int
	// Err is the inline error placeholder for a malformed descriptor; a bad
	// field renders its error instead of blocking the rest of the form.
	Err string

	Write      WriteFunc
	BatchWrite BatchWriteFunc
}

const birthYearRange = 120

var collator = collate.New(language.BrazilianPortuguese, collate.IgnoreCase)

// Resolve maps one field descriptor plus the current record into a control
// specification. It has no side effects; edits flow back exclusively through
// the write handlers the orchestrator attaches afterwards.
func Resolve(f meta.FieldMetadata, rec metaform.Record, sess *session.Session) Control {
	c := meta.Classify(f)
	ctrl := Control{
		Field:    f,
		Kind:     c.Kind,
		Mask:     c.Mask,
		Value:    rec[f.Name],
		Required: f.Required,
		Disabled: f.Disabled || f.ReadOnly,
	}
	switch c.Kind {
	case meta.KindComputed:
		// Computed values are derived, never entered: disabled regardless of
		// the descriptor's own flags.
		ctrl.Disabled = true
	case meta.KindCoordinate:
		// Coordinates only arrive through the geocoding batch write.
		ctrl.Disabled = true
	case meta.KindBool:
		// A checkbox is never required; false is a valid answer.
		ctrl.Required = false
	case meta.KindText, meta.KindEmail, meta.KindPassword:
		if s, ok := ctrl.Value.(string); ok && c.Mask != mask.None {
			ctrl.Value = mask.Apply(s, c.Mask)
		}
	case meta.KindSelect:
		ctrl.Options = sortedChoices(f.Options)
	case meta.KindBirthDate:
		today := now.EndOfDay()
		ctrl.MaxDate = today
		ctrl.MinYear = today.Year() - birthYearRange
	case meta.KindEntity:
		ec, err := resolveEntityConfig(f)
		if err != "" {
			ctrl.Err = err
			ctrl.Disabled = true
			break
		}
		ctrl.Entity = ec
		// Only admins may repoint an organization link; for everyone else
		// the orchestrator injects it and the control stays inert.
		if ec.Entity == "organization" && !sess.IsAdmin() {
			ctrl.Disabled = true
		}
	case meta.KindCity:
		ctrl.Entity = &meta.EntityConfig{
			RenderAs:   meta.RenderTypeahead,
			Entity:     "city",
			Endpoint:   "/cities/search",
			LabelField: "name",
		}
	}
	return ctrl
}

// resolveEntityConfig returns the declared entityConfig, or one constructed
// from the relationship descriptor. With neither present the field is
// malformed and gets an inline error instead of a working picker.
func resolveEntityConfig(f meta.FieldMetadata) (*meta.EntityConfig, string) {
	if f.EntityConfig != nil {
		ec := *f.EntityConfig
		if ec.RenderAs == "" {
			ec.RenderAs = meta.RenderSelect
		}
		if f.Relationship != nil {
			if ec.Endpoint == "" {
				ec.Endpoint = f.Relationship.Endpoint
			}
			if ec.LabelField == "" {
				ec.LabelField = f.Relationship.LabelField
			}
			if ec.Entity == "" {
				ec.Entity = f.Relationship.Entity
			}
		}
		return &ec, ""
	}
	if f.Relationship != nil {
		return &meta.EntityConfig{
			RenderAs:   meta.RenderSelect,
			Entity:     f.Relationship.Entity,
			Endpoint:   f.Relationship.Endpoint,
			LabelField: f.Relationship.LabelField,
		}, ""
	}
	return nil, "relationship field '" + f.Name + "' has neither entityConfig nor relationship"
}

// sortedChoices orders enum options by localized label.
func sortedChoices(options []meta.Choice) []meta.Choice {
	sorted := make([]meta.Choice, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		return collator.CompareString(sorted[i].Label, sorted[j].Label) < 0
	})
	return sorted
}
