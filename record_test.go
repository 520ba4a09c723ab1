package metaform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordGet(t *testing.T) {
	rec := FromJSON(`{"name":"Rock in Rio","venue":{"city":{"name":"Rio"}},"tickets":[{"price":50},{"price":80}]}`)

	t.Run("top_level", func(t *testing.T) {
		require.Equal(t, "Rock in Rio", rec.String("name").MustGet())
	})
	t.Run("nested_object", func(t *testing.T) {
		require.Equal(t, "Rio", rec.String("venue.city.name").MustGet())
	})
	t.Run("array_index", func(t *testing.T) {
		require.Equal(t, 80.0, rec.Float("tickets.1.price").MustGet())
	})
	t.Run("absent_path", func(t *testing.T) {
		require.True(t, rec.Get("venue.state").IsAbsent())
		require.True(t, rec.Get("tickets.9.price").IsAbsent())
	})
	t.Run("wrong_type_panics", func(t *testing.T) {
		require.Panics(t, func() { rec.Bool("name") })
	})
}

func TestRecordClone(t *testing.T) {
	rec := Record{
		"name":    "ev",
		"venue":   map[string]any{"city": "Rio"},
		"tickets": []any{map[string]any{"price": 50.0}},
	}
	clone := rec.Clone()
	clone["name"] = "other"
	clone["venue"].(Record)["city"] = "SP"
	clone["tickets"].([]any)[0].(Record)["price"] = 99.0

	require.Equal(t, "ev", rec["name"])
	require.Equal(t, "Rio", rec["venue"].(map[string]any)["city"])
	require.Equal(t, 50.0, rec["tickets"].([]any)[0].(map[string]any)["price"])
}

func TestRelationID(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
		found bool
	}{
		{"bare_number", 5.0, 5.0, true},
		{"bare_string", "abc", "abc", true},
		{"object", map[string]any{"id": 5.0, "label": "x"}, 5.0, true},
		{"object_without_id", map[string]any{"label": "x"}, nil, false},
		{"nil", nil, nil, false},
		{"empty_string", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := RelationID(tt.value)
			require.Equal(t, tt.found, found)
			if found {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	require.True(t, Truthy("x"))
	require.True(t, Truthy(1.0))
	require.True(t, Truthy(true))
	require.False(t, Truthy(""))
	require.False(t, Truthy("  "))
	require.False(t, Truthy(0.0))
	require.False(t, Truthy(false))
	require.False(t, Truthy(nil))
	require.False(t, Truthy([]any{}))
}

func TestFieldErrors(t *testing.T) {
	errs := FieldErrors{}
	require.NoError(t, errs.Err())

	errs.Add("cpf", "invalid")
	errs.Add("cpf", "second message ignored")
	errs.Add("name", "required")

	require.Error(t, errs.Err())
	require.Equal(t, "invalid", errs["cpf"])
	require.Equal(t, []string{"cpf", "name"}, errs.Fields())
	require.Contains(t, errs.Error(), "cpf: invalid")
}
