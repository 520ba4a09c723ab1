// Package geo defines the geocoding collaborator contract and the fan-out
// that turns one geocoding result into a batch of field writes. The actual
// provider (Google Maps in production) lives outside this module; tests use
// a stub.
package geo

import (
	"context"
	"strings"

	"github.com/eventara/metaform/meta"
)

// Address is the structured result of a geocoding lookup.
type Address struct {
	Formatted    string
	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	Latitude     float64
	Longitude    float64
}

// Geocoder resolves free-form address text (or coordinates) into structured
// components.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Address, error)
	Reverse(ctx context.Context, lat, lng float64) (Address, error)
}

// componentFor maps address components onto candidate field-name spellings,
// English first, then the Portuguese names the delivery backend uses.
func componentFor(addr Address, prefix string) map[string]any {
	return map[string]any{
		prefix + "Street":       addr.Street,
		prefix + "Number":       addr.Number,
		prefix + "Neighborhood": addr.Neighborhood,
		prefix + "City":         addr.City,
		prefix + "State":        addr.State,
		prefix + "Zipcode":      addr.PostalCode,
		prefix + "Cep":          addr.PostalCode,
		prefix + "Latitude":     addr.Latitude,
		prefix + "Longitude":    addr.Longitude,
	}
}

// BatchWrites fans one geocoding result out into the fields the entity
// metadata actually declares. The address field itself always receives the
// formatted text; the component and coordinate fields are included only when
// a matching field name exists, so the write stays a single atomic patch of
// known fields.
//
// The prefix is derived from the address field name: "fromAddress" writes
// "fromLatitude", a bare "address" writes "latitude".
func BatchWrites(addressField string, addr Address, fields []meta.FieldMetadata) map[string]any {
	prefix := prefixOf(addressField)
	candidates := componentFor(addr, prefix)
	patch := map[string]any{addressField: addr.Formatted}
	for _, f := range fields {
		if f.Name == addressField {
			continue
		}
		for cand, value := range candidates {
			if strings.EqualFold(f.Name, cand) {
				patch[f.Name] = value
				break
			}
		}
	}
	return patch
}

// prefixOf strips the trailing "Address"/"Endereco" part: "fromAddress" ->
// "from", "address" -> "".
func prefixOf(addressField string) string {
	lower := strings.ToLower(addressField)
	for _, marker := range []string{"address", "endereco"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			return addressField[:idx]
		}
	}
	return ""
}
