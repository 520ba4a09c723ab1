package compute

import (
	"math"
	"strconv"
	"strings"

	metaform "github.com/eventara/metaform"
)

// Built-in derivations used by the event and delivery entities.
func init() {
	Register("distanceKm", DistanceKm)
	Register("fullName", FullName)
	Register("itemTotal", ItemTotal)
}

// DistanceKm derives the great-circle distance between the from/to
// coordinate pairs of a delivery record, formatted with two decimals.
// It yields the empty string until all four coordinates are present.
func DistanceKm(r metaform.Record) string {
	fromLat := r.Float("fromLatitude")
	fromLng := r.Float("fromLongitude")
	toLat := r.Float("toLatitude")
	toLng := r.Float("toLongitude")
	if fromLat.IsAbsent() || fromLng.IsAbsent() || toLat.IsAbsent() || toLng.IsAbsent() {
		return ""
	}
	d := HaversineKm(fromLat.MustGet(), fromLng.MustGet(), toLat.MustGet(), toLng.MustGet())
	return strconv.FormatFloat(d, 'f', 2, 64)
}

// FullName concatenates first and last name, tolerating either part being
// absent.
func FullName(r metaform.Record) string {
	first := r.String("firstName").OrElse("")
	last := r.String("lastName").OrElse("")
	return strings.TrimSpace(first + " " + last)
}

// ItemTotal derives unit price times quantity, formatted with two decimals.
func ItemTotal(r metaform.Record) string {
	price := r.Float("price")
	qty := r.Float("quantity")
	if price.IsAbsent() || qty.IsAbsent() {
		return ""
	}
	return strconv.FormatFloat(price.MustGet()*qty.MustGet(), 'f', 2, 64)
}

const earthRadiusKm = 6371.0

// HaversineKm computes the great-circle distance in kilometers between two
// coordinate pairs.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
