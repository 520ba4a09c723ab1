package compute

import (
	"strconv"
	"testing"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/meta"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("testOnlyDerivation", func(metaform.Record) string { return "" })
	require.Panics(t, func() {
		Register("testOnlyDerivation", func(metaform.Record) string { return "" })
	})
}

func TestLookup(t *testing.T) {
	_, ok := Lookup("distanceKm")
	require.True(t, ok)
	_, ok = Lookup("nope")
	require.False(t, ok)
}

func TestDependsOn(t *testing.T) {
	plain := meta.FieldMetadata{Name: "name"}
	require.False(t, DependsOn(plain, "anything"))

	undeclared := meta.FieldMetadata{Name: "total", Computed: "itemTotal"}
	require.True(t, DependsOn(undeclared, "anything"))

	declared := meta.FieldMetadata{
		Name:                 "total",
		Computed:             "itemTotal",
		ComputedDependencies: []string{"price", "quantity"},
	}
	require.True(t, DependsOn(declared, "price"))
	require.False(t, DependsOn(declared, "name"))
}

func TestPassFixedPoint(t *testing.T) {
	fields := []meta.FieldMetadata{
		{Name: "price", Type: meta.TypeNumber},
		{Name: "quantity", Type: meta.TypeNumber},
		{Name: "total", Type: meta.TypeText, Computed: "itemTotal"},
	}
	rec := metaform.Record{"price": 25.5, "quantity": 2.0}

	require.True(t, Pass(rec, fields))
	require.Equal(t, "51.00", rec["total"])

	// Already at the fixed point.
	require.False(t, Pass(rec, fields))

	rec["quantity"] = 3.0
	require.True(t, Pass(rec, fields))
	require.Equal(t, "76.50", rec["total"])
}

func TestPassForRecomputesOnlyDependents(t *testing.T) {
	fields := []meta.FieldMetadata{
		{Name: "price", Type: meta.TypeNumber},
		{Name: "quantity", Type: meta.TypeNumber},
		{Name: "firstName", Type: meta.TypeText},
		{Name: "total", Type: meta.TypeText, Computed: "itemTotal", ComputedDependencies: []string{"price", "quantity"}},
		{Name: "display", Type: meta.TypeText, Computed: "fullName", ComputedDependencies: []string{"firstName", "lastName"}},
	}
	rec := metaform.Record{"price": 2.0, "quantity": 3.0, "firstName": "Ana", "display": "stale"}

	// A price edit re-derives the total but must not touch the name display.
	require.True(t, PassFor(rec, fields, "price"))
	require.Equal(t, "6.00", rec["total"])
	require.Equal(t, "stale", rec["display"])

	require.True(t, PassFor(rec, fields, "firstName"))
	require.Equal(t, "Ana", rec["display"])

	t.Run("no_names_sweeps_everything", func(t *testing.T) {
		rec["display"] = "stale again"
		require.True(t, PassFor(rec, fields))
		require.Equal(t, "Ana", rec["display"])
	})
	t.Run("undeclared_dependencies_always_fire", func(t *testing.T) {
		undeclared := []meta.FieldMetadata{
			{Name: "total", Type: meta.TypeText, Computed: "itemTotal"},
		}
		r := metaform.Record{"price": 4.0, "quantity": 2.0}
		require.True(t, PassFor(r, undeclared, "anything"))
		require.Equal(t, "8.00", r["total"])
	})
}

func TestPassUnknownDerivation(t *testing.T) {
	fields := []meta.FieldMetadata{{Name: "x", Computed: "unregistered"}}
	rec := metaform.Record{}
	require.False(t, Pass(rec, fields))
	require.NotContains(t, rec, "x")
}

func TestDistanceKm(t *testing.T) {
	t.Run("incomplete_coordinates", func(t *testing.T) {
		require.Equal(t, "", DistanceKm(metaform.Record{"fromLatitude": -23.55}))
	})
	t.Run("sp_to_rio", func(t *testing.T) {
		rec := metaform.Record{
			"fromLatitude":  -23.5505,
			"fromLongitude": -46.6333,
			"toLatitude":    -22.9068,
			"toLongitude":   -43.1729,
		}
		got, err := strconv.ParseFloat(DistanceKm(rec), 64)
		require.NoError(t, err)
		require.InDelta(t, 360.8, got, 1.0)
	})
	t.Run("same_point", func(t *testing.T) {
		rec := metaform.Record{
			"fromLatitude":  -23.5505,
			"fromLongitude": -46.6333,
			"toLatitude":    -23.5505,
			"toLongitude":   -46.6333,
		}
		require.Equal(t, "0.00", DistanceKm(rec))
	})
}

func TestFullName(t *testing.T) {
	require.Equal(t, "Ana Souza", FullName(metaform.Record{"firstName": "Ana", "lastName": "Souza"}))
	require.Equal(t, "Ana", FullName(metaform.Record{"firstName": "Ana"}))
	require.Equal(t, "", FullName(metaform.Record{}))
}

func TestHaversineKm(t *testing.T) {
	require.Zero(t, HaversineKm(10, 20, 10, 20))
	// One degree of latitude is roughly 111 km.
	require.InDelta(t, 111.2, HaversineKm(0, 0, 1, 0), 0.5)
}
