package form

import (
	"testing"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/meta"
	"github.com/stretchr/testify/require"
)

func ticketedEvent(minItems, maxItems int) meta.EntityMetadata {
	return meta.EntityMetadata{
		Name:  "event",
		Label: "Evento",
		FormFields: []meta.FieldMetadata{
			{Name: "name", Label: "Nome", Type: meta.TypeText, Required: true},
			{Name: "tickets", Label: "Ingresso", Type: meta.TypeArray, ArrayConfig: &meta.ArrayConfig{
				MinItems:  minItems,
				MaxItems:  maxItems,
				ItemLabel: "Ingresso {index}",
				Fields: []meta.FieldMetadata{
					{Name: "description", Label: "Descrição", Type: meta.TypeText},
					{Name: "price", Label: "Preço", Type: meta.TypeNumber},
					{Name: "quantity", Label: "Quantidade", Type: meta.TypeNumber},
					{Name: "total", Label: "Total", Type: meta.TypeText, Computed: "itemTotal", ComputedDependencies: []string{"price", "quantity"}},
					{Name: "free", Label: "Gratuito", Type: meta.TypeBoolean},
					{Name: "event", Label: "Evento", Type: meta.TypeEntity, Relationship: &meta.Relationship{Entity: "event", Endpoint: "/events"}},
				},
			}},
		},
	}
}

func TestArrayAddAndSeed(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	require.Zero(t, a.Len())
	require.True(t, a.AddItem())
	require.Equal(t, 1, a.Len())

	item := a.Items()[0]
	require.Equal(t, "", item["description"])
	require.Equal(t, false, item["free"])
	require.Equal(t, "", item["price"])
}

func TestArrayCeiling(t *testing.T) {
	f := New(ticketedEvent(0, 2))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	require.True(t, a.AddItem())
	require.True(t, a.AddItem())
	require.True(t, a.AtCeiling())
	require.False(t, a.AddItem())
	require.Equal(t, 2, a.Len())
}

func TestArrayFloorGatesRemoveAffordance(t *testing.T) {
	f := New(ticketedEvent(1, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	a.AddItem()
	require.True(t, a.AtFloor())
	require.False(t, a.CanRemove())
	a.AddItem()
	require.True(t, a.CanRemove())

	// The floor is an affordance, not a hard stop: direct removal still works.
	require.True(t, a.RemoveItem(1))
	require.True(t, a.RemoveItem(0))
	require.Zero(t, a.Len())
}

func TestArrayAddThenRemoveRestoresPriorState(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	a.AddItem()
	a.UpdateField(0, "description", "Pista")
	before := f.Record().Items("tickets")[0].Clone()

	a.AddItem()
	require.Equal(t, 2, a.Len())
	require.True(t, a.RemoveItem(1))

	require.Equal(t, 1, a.Len())
	require.Equal(t, before, a.Items()[0])
}

func TestArrayUpdateReadsLatest(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")
	a.AddItem()

	// Two chained callbacks over the same index: the second must see the
	// first's write, not a stale snapshot.
	a.UpdateField(0, "description", "Pista")
	a.UpdateFields(0, map[string]any{"price": 100.0, "quantity": 2.0})

	item := a.Items()[0]
	require.Equal(t, "Pista", item["description"])
	require.Equal(t, "200.00", item["total"])
}

func TestArrayItemComputedFields(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")
	a.AddItem()

	a.UpdateFields(0, map[string]any{"price": 25.5, "quantity": 2.0})
	require.Equal(t, "51.00", a.Items()[0]["total"])

	a.UpdateField(0, "quantity", 4.0)
	require.Equal(t, "102.00", a.Items()[0]["total"])
}

func TestArrayItemFieldsExcludeParentLink(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	for _, nf := range a.ItemFields() {
		require.NotEqual(t, "event", nf.Name)
	}
	require.Len(t, a.ItemFields(), 5)
}

func TestArrayCollapseKeyedByIdentity(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")

	a.AddItem()
	a.AddItem()
	a.AddItem()
	a.UpdateField(2, "description", "Camarote")
	a.Collapse(2, true)
	require.True(t, a.IsCollapsed(2))

	// Removing an earlier item shifts positions; collapse follows the item.
	require.True(t, a.RemoveItem(0))
	require.True(t, a.IsCollapsed(1))
	require.False(t, a.IsCollapsed(0))
	require.Equal(t, "Camarote", a.Items()[1]["description"])
}

func TestArrayItemLabel(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")
	a.AddItem()
	require.Equal(t, "Ingresso 1", a.ItemLabel(0))
}

func TestArrayControls(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")
	a.AddItem()

	controls := a.Controls(0)
	require.NotEmpty(t, controls)
	var wrote bool
	for _, ctrl := range controls {
		if ctrl.Field.Name == "description" {
			ctrl.Write("description", "Pista")
			wrote = true
		}
		// The parent link is never rendered inside the sub-form.
		require.NotEqual(t, "event", ctrl.Field.Name)
	}
	require.True(t, wrote)
	require.Equal(t, "Pista", a.Items()[0]["description"])
}

// The sequence can change hands outside the engine: a direct Set on the array
// field or a hydrate landing items after the engine exists. Identity-dependent
// operations must follow the live sequence instead of indexing stale keys.
func TestArrayFollowsOrchestratorWrites(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	a := f.Array("tickets")
	require.Zero(t, a.Len())

	f.Set("tickets", []metaform.Record{
		{"id": 1.0, "description": "Pista"},
		{"description": "Camarote"},
	})
	require.Equal(t, 2, a.Len())

	require.Equal(t, "id:1", a.Key(0))
	a.Collapse(1, true)
	require.True(t, a.IsCollapsed(1))

	require.True(t, a.RemoveItem(1))
	require.Equal(t, 1, a.Len())
	require.Equal(t, "Pista", a.Items()[0]["description"])

	t.Run("external_shrink", func(t *testing.T) {
		a.AddItem()
		f.Set("tickets", []metaform.Record{{"id": 1.0, "description": "Pista"}})
		require.Equal(t, "", a.Key(1))
		require.False(t, a.RemoveItem(1))
		require.True(t, a.RemoveItem(0))
		require.Zero(t, a.Len())
	})
}

func TestArrayPanicsOnNonArrayField(t *testing.T) {
	f := New(ticketedEvent(0, 0))
	require.NoError(t, f.Hydrate(t.Context()))
	require.Panics(t, func() { f.Array("name") })
}
