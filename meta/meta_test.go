package meta

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const eventDoc = `{
	"name": "event",
	"label": "Evento",
	"sections": [
		{"label": "Dados", "fields": [
			{"name": "name", "label": "Nome", "type": "text", "required": true},
			{"name": "startAt", "label": "Início", "type": "datetime"}
		]}
	],
	"formFields": [
		{"name": "active", "label": "Ativo", "type": "boolean", "defaultValue": true}
	],
	"tableFields": [
		{"name": "name", "label": "Nome", "type": "text"}
	],
	"filters": [
		{"name": "search", "label": "Busca", "type": "text"}
	],
	"pagination": {"size": 10}
}`

func TestParse(t *testing.T) {
	em, err := Parse(eventDoc)
	require.NoError(t, err)
	require.Equal(t, "event", em.Name)
	require.Equal(t, 10, em.Pagination.Size)
	require.Len(t, em.Sections, 1)
	require.Len(t, em.Filters, 1)

	t.Run("invalid_json", func(t *testing.T) {
		_, err := Parse(`{"name":`)
		require.Error(t, err)
	})
	t.Run("missing_name", func(t *testing.T) {
		_, err := Parse(`{"label": "x"}`)
		require.ErrorContains(t, err, "missing entity name")
	})
}

func TestResolvedEndpoint(t *testing.T) {
	require.Equal(t, "/api/events", EntityMetadata{Name: "event", Endpoint: "/api/events"}.ResolvedEndpoint())
	require.Equal(t, "/events", EntityMetadata{Name: "event"}.ResolvedEndpoint())
	require.Equal(t, "/deliveries", EntityMetadata{Name: "delivery"}.ResolvedEndpoint())
	require.Equal(t, "/categories", EntityMetadata{Name: "Category"}.ResolvedEndpoint())
}

func TestAllFormFields(t *testing.T) {
	em := lo.Must(Parse(eventDoc))
	names := lo.Map(em.AllFormFields(), func(f FieldMetadata, _ int) string { return f.Name })
	// Section fields come first, then top-level formFields.
	require.Equal(t, []string{"name", "startAt", "active"}, names)
}

func TestFieldByName(t *testing.T) {
	em := lo.Must(Parse(eventDoc))
	f, ok := em.FieldByName("active")
	require.True(t, ok)
	require.Equal(t, TypeBoolean, f.Type)

	_, ok = em.FieldByName("ghost")
	require.False(t, ok)
}

func TestIsVisible(t *testing.T) {
	require.True(t, FieldMetadata{Name: "a"}.IsVisible())
	require.True(t, FieldMetadata{Name: "a", Visible: lo.ToPtr(true)}.IsVisible())
	require.False(t, FieldMetadata{Name: "a", Visible: lo.ToPtr(false)}.IsVisible())
}

func TestSynthesize(t *testing.T) {
	f := Synthesize("internalCode")
	require.Equal(t, "internalCode", f.Name)
	require.Equal(t, TypeText, f.Type)
	require.True(t, f.IsVisible())
}
