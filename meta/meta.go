// Package meta is the metadata type model: the field, entity and filter
// descriptors the backend publishes and every higher layer consumes as
// authoritative schema. It also owns the single, canonical field classifier
// (classify.go) and the showIf expression evaluator (showif.go).
package meta

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// DataType is the wire-level field type string as the backend declares it.
// Classification into a closed Kind happens in Classify; unknown strings
// degrade to text rather than failing the whole form.
type DataType string

const (
	TypeText     DataType = "text"
	TypeTextArea DataType = "textarea"
	TypeEmail    DataType = "email"
	TypePassword DataType = "password"
	TypeNumber   DataType = "number"
	TypeBoolean  DataType = "boolean"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "datetime"
	TypeSelect   DataType = "select"
	TypeEntity   DataType = "entity"
	TypeCity     DataType = "city"
	TypeAddress  DataType = "address"
	TypeArray    DataType = "array"
)

// RenderMode selects how a relationship picker is rendered.
type RenderMode string

const (
	RenderSelect    RenderMode = "select"
	RenderTypeahead RenderMode = "typeahead"
)

// Validation carries the declarative constraints of one field.
type Validation struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Choice is one enum option of a select field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Relationship describes a to-one or to-many link to another entity.
type Relationship struct {
	Entity     string `json:"entity"`
	Endpoint   string `json:"endpoint"`
	LabelField string `json:"labelField"`
}

// EntityConfig carries render hints for relationship pickers. When absent it
// is synthesized from the field's Relationship (see Resolver).
type EntityConfig struct {
	RenderAs   RenderMode `json:"renderAs"`
	Entity     string     `json:"entity"`
	Endpoint   string     `json:"endpoint"`
	LabelField string     `json:"labelField"`
}

// ArrayConfig describes the nested shape of an array field.
type ArrayConfig struct {
	Fields    []FieldMetadata `json:"fields"`
	MinItems  int             `json:"minItems"`
	MaxItems  int             `json:"maxItems"`
	ItemLabel string          `json:"itemLabel"`
}

// FieldMetadata describes one field of an entity. The backend supplies it;
// the client treats it as the single source of truth for rendering,
// validation and payload shaping.
type FieldMetadata struct {
	Name         string        `json:"name"`
	Label        string        `json:"label"`
	Type         DataType      `json:"type"`
	Required     bool          `json:"required"`
	Visible      *bool         `json:"visible,omitempty"`
	ReadOnly     bool          `json:"readonly"`
	Disabled     bool          `json:"disabled"`
	Placeholder  string        `json:"placeholder,omitempty"`
	DefaultValue any           `json:"defaultValue,omitempty"`
	Format       string        `json:"format,omitempty"`
	Validation   *Validation   `json:"validation,omitempty"`
	Options      []Choice      `json:"options,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
	EntityConfig *EntityConfig `json:"entityConfig,omitempty"`
	ArrayConfig  *ArrayConfig  `json:"arrayConfig,omitempty"`
	// Computed names a registered pure derivation; a computed field is never
	// user-entered and always renders disabled.
	Computed             string   `json:"computed,omitempty"`
	ComputedDependencies []string `json:"computedDependencies,omitempty"`
	ShowIf               string   `json:"showIf,omitempty"`
	// Transferred marks a field that logically belongs to another entity and
	// must be stripped from submission payloads.
	Transferred bool `json:"transferred"`
}

// IsVisible reports the declared visibility; absent means visible.
func (f FieldMetadata) IsVisible() bool {
	return f.Visible == nil || *f.Visible
}

// Section groups form fields under a label.
type Section struct {
	Label  string          `json:"label"`
	Fields []FieldMetadata `json:"fields"`
}

// FilterMetadata describes one query control of the table view.
type FilterMetadata struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        DataType `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Choice `json:"options,omitempty"`
}

// Pagination carries the table's page-size configuration.
type Pagination struct {
	Size int `json:"size"`
}

// EntityMetadata is one entity's full descriptor.
type EntityMetadata struct {
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	Endpoint    string           `json:"endpoint"`
	TableFields []FieldMetadata  `json:"tableFields"`
	FormFields  []FieldMetadata  `json:"formFields"`
	Sections    []Section        `json:"sections"`
	Filters     []FilterMetadata `json:"filters"`
	Pagination  Pagination       `json:"pagination"`
}

// Parse decodes an EntityMetadata document.
func Parse(doc string) (EntityMetadata, error) {
	var em EntityMetadata
	if err := json.Unmarshal([]byte(doc), &em); err != nil {
		return EntityMetadata{}, fmt.Errorf("parse entity metadata: %w", err)
	}
	if em.Name == "" {
		return EntityMetadata{}, fmt.Errorf("parse entity metadata: missing entity name")
	}
	return em, nil
}

// ResolvedEndpoint returns the declared endpoint, or a pluralized fallback
// derived from the entity name ("event" -> "/events").
func (e EntityMetadata) ResolvedEndpoint() string {
	if e.Endpoint != "" {
		return e.Endpoint
	}
	return "/" + inflection.Plural(strings.ToLower(e.Name))
}

// AllFormFields flattens sections and the top-level formFields list into the
// full write-mode field set, sections first, in declaration order.
func (e EntityMetadata) AllFormFields() []FieldMetadata {
	var fields []FieldMetadata
	for _, s := range e.Sections {
		fields = append(fields, s.Fields...)
	}
	fields = append(fields, e.FormFields...)
	return fields
}

// FieldByName looks a field up across sections and formFields.
func (e EntityMetadata) FieldByName(name string) (FieldMetadata, bool) {
	for _, f := range e.AllFormFields() {
		if f.Name == name {
			return f, true
		}
	}
	return FieldMetadata{}, false
}

// Synthesize builds the plain text descriptor used for fields that are absent
// from metadata but forced visible via an explicit override list.
func Synthesize(name string) FieldMetadata {
	return FieldMetadata{Name: name, Label: name, Type: TypeText}
}
