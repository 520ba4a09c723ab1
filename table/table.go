// Package table is the read-mode side of the engine: paginated, filtered,
// server-backed grids rendered from the same field metadata the forms use.
package table

import (
	"net/url"
	"strconv"
	"time"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/mask"
	"github.com/eventara/metaform/meta"
	"github.com/tidwall/gjson"
)

// FilterState maps filter field names to their current string value. It is
// independent of any record under edit and drives table re-fetch.
type FilterState map[string]string

// Set stores a filter value; an empty value clears the filter.
func (fs FilterState) Set(name, value string) {
	if value == "" {
		delete(fs, name)
		return
	}
	fs[name] = value
}

// PageRequest is the 0-based pagination cursor sent to list endpoints.
type PageRequest struct {
	Page int
	Size int
}

// PageInfo mirrors the backend's pagination envelope.
type PageInfo struct {
	TotalElements int64
	TotalPages    int
	Number        int
	Size          int
}

// Page is one fetched slice of a listing.
type Page struct {
	Items []metaform.Record
	Info  PageInfo
}

// BuildQuery assembles the list query string: page, size, plus one query
// param per active filter.
func BuildQuery(pr PageRequest, filters FilterState) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(pr.Page))
	if pr.Size > 0 {
		q.Set("size", strconv.Itoa(pr.Size))
	}
	for name, value := range filters {
		if value != "" {
			q.Set(name, value)
		}
	}
	return q
}

// ParseList decodes a list response. The backend answers either with a bare
// array or with a paginated envelope {content, totalElements, totalPages,
// number, size}; both shapes land in the same Page.
func ParseList(body string) Page {
	parsed := gjson.Parse(body)
	if parsed.IsArray() {
		items := toRecords(parsed)
		return Page{
			Items: items,
			Info:  PageInfo{TotalElements: int64(len(items)), TotalPages: 1, Size: len(items)},
		}
	}
	items := toRecords(parsed.Get("content"))
	return Page{
		Items: items,
		Info: PageInfo{
			TotalElements: parsed.Get("totalElements").Int(),
			TotalPages:    int(parsed.Get("totalPages").Int()),
			Number:        int(parsed.Get("number").Int()),
			Size:          int(parsed.Get("size").Int()),
		},
	}
}

func toRecords(res gjson.Result) []metaform.Record {
	var items []metaform.Record
	res.ForEach(func(_, item gjson.Result) bool {
		if m, ok := item.Value().(map[string]any); ok {
			items = append(items, metaform.Record(m))
		}
		return true
	})
	return items
}

// Table renders one entity's grid: visible columns from tableFields plus the
// current filter and pagination state.
type Table struct {
	Entity  meta.EntityMetadata
	Filters FilterState
	Page    PageRequest
}

// New builds a table over an entity with the metadata-declared page size.
func New(entity meta.EntityMetadata) *Table {
	size := entity.Pagination.Size
	if size <= 0 {
		size = 20
	}
	return &Table{
		Entity:  entity,
		Filters: FilterState{},
		Page:    PageRequest{Size: size},
	}
}

// Columns returns the visible read-mode columns.
func (t *Table) Columns() []meta.FieldMetadata {
	var cols []meta.FieldMetadata
	for _, f := range t.Entity.TableFields {
		if f.IsVisible() {
			cols = append(cols, f)
		}
	}
	return cols
}

// Query returns the list query for the current filter and page state.
func (t *Table) Query() url.Values {
	return BuildQuery(t.Page, t.Filters)
}

// SetFilter updates one filter and rewinds to the first page, since a filter
// change invalidates the current cursor.
func (t *Table) SetFilter(name, value string) {
	t.Filters.Set(name, value)
	t.Page.Page = 0
}

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

// CellValue renders one field of one record for read-mode display, reusing
// the same classification the form resolver applies in write mode.
func CellValue(f meta.FieldMetadata, rec metaform.Record) string {
	c := meta.Classify(f)
	raw, ok := rec[f.Name]
	if !ok || raw == nil {
		return ""
	}
	switch c.Kind {
	case meta.KindBool:
		if b, ok := raw.(bool); ok && b {
			return "sim"
		}
		return "não"
	case meta.KindSelect:
		value, _ := raw.(string)
		for _, choice := range f.Options {
			if choice.Value == value {
				return choice.Label
			}
		}
		return value
	case meta.KindEntity, meta.KindCity:
		return relationLabel(raw, f)
	case meta.KindDate, meta.KindBirthDate:
		return formatInstant(raw, dateLayout)
	case meta.KindDateTime:
		return formatInstant(raw, dateTimeLayout)
	default:
		if s, ok := raw.(string); ok {
			if c.Mask != mask.None {
				return mask.Apply(s, c.Mask)
			}
			return s
		}
		if num, ok := metaform.AsFloat(raw); ok {
			return strconv.FormatFloat(num, 'f', -1, 64)
		}
		return ""
	}
}

// formatInstant renders a backend timestamp string in pt-BR day-first order,
// falling back to the raw text when it does not parse.
func formatInstant(raw any, layout string) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	for _, in := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(in, s); err == nil {
			return t.Format(layout)
		}
	}
	return s
}

// relationLabel prefers the relationship's declared label field, then the
// conventional name/label members, then the bare id. A relation object may be
// the map[string]any the backend sent or the Record shape local edits
// produce.
func relationLabel(raw any, f meta.FieldMetadata) string {
	var m map[string]any
	switch t := raw.(type) {
	case map[string]any:
		m = t
	case metaform.Record:
		m = t
	default:
		if id, found := metaform.RelationID(raw); found {
			return idLabel(id)
		}
		return ""
	}
	labelField := "name"
	if f.Relationship != nil && f.Relationship.LabelField != "" {
		labelField = f.Relationship.LabelField
	}
	for _, key := range []string{labelField, "label", "name"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	if id, found := metaform.RelationID(m); found {
		return idLabel(id)
	}
	return ""
}

func idLabel(id any) string {
	if s, ok := id.(string); ok {
		return s
	}
	if num, ok := metaform.AsFloat(id); ok {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
	return ""
}
