package meta

import (
	"strings"

	"github.com/eventara/metaform/mask"
)

// Kind is the closed classification of a field: the declarative type string
// plus every name heuristic collapsed into one tagged union, matched
// exhaustively by the renderer. Heuristic detection (phone, address,
// coordinate, birth date, time granularity) lives here and nowhere else.
type Kind int

const (
	KindText Kind = iota
	KindTextArea
	KindEmail
	KindPassword
	KindNumber
	KindCoordinate
	KindBool
	KindDate
	KindDateTime
	KindBirthDate
	KindSelect
	KindEntity
	KindCity
	KindAddress
	KindArray
	KindComputed
)

var kindNames = map[Kind]string{
	KindText:       "text",
	KindTextArea:   "textarea",
	KindEmail:      "email",
	KindPassword:   "password",
	KindNumber:     "number",
	KindCoordinate: "coordinate",
	KindBool:       "boolean",
	KindDate:       "date",
	KindDateTime:   "datetime",
	KindBirthDate:  "birthdate",
	KindSelect:     "select",
	KindEntity:     "entity",
	KindCity:       "city",
	KindAddress:    "address",
	KindArray:      "array",
	KindComputed:   "computed",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Classification is the resolver-facing result: which control kind to render
// and which input mask, if any, the field's name implies.
type Classification struct {
	Kind Kind
	Mask mask.Kind
}

// Classify maps one field descriptor into its Classification. Priority order:
// computed beats everything, address-like names beat the declared type, then
// the declared type decides.
func Classify(f FieldMetadata) Classification {
	if f.Computed != "" {
		return Classification{Kind: KindComputed}
	}
	if IsAddressName(f.Name) && f.Type != TypeArray && f.Type != TypeEntity {
		return Classification{Kind: KindAddress}
	}
	switch f.Type {
	case TypeTextArea:
		return Classification{Kind: KindTextArea}
	case TypeEmail:
		return Classification{Kind: KindEmail}
	case TypePassword:
		return Classification{Kind: KindPassword}
	case TypeNumber:
		if IsCoordinateName(f.Name) {
			return Classification{Kind: KindCoordinate}
		}
		return Classification{Kind: KindNumber}
	case TypeBoolean:
		return Classification{Kind: KindBool}
	case TypeDate, TypeDateTime:
		return Classification{Kind: dateKind(f)}
	case TypeSelect:
		return Classification{Kind: KindSelect}
	case TypeEntity:
		return Classification{Kind: KindEntity}
	case TypeCity:
		return Classification{Kind: KindCity}
	case TypeAddress:
		return Classification{Kind: KindAddress}
	case TypeArray:
		return Classification{Kind: KindArray}
	default:
		// text and any unknown declared type degrade to a text input with a
		// name-detected mask.
		return Classification{Kind: KindText, Mask: mask.Detect(f.Name)}
	}
}

// dateKind decides the time granularity of a date-ish field: birth-date names
// get the extended year-range picker, an explicit datetime declaration or a
// format string with a time component (or an "…At" name suffix) gets a
// datetime picker, everything else a plain date picker.
func dateKind(f FieldMetadata) Kind {
	if IsBirthDateName(f.Name) {
		return KindBirthDate
	}
	if f.Type == TypeDateTime || HasTimeComponent(f.Format) || strings.HasSuffix(f.Name, "At") {
		return KindDateTime
	}
	return KindDate
}

// IsAddressName reports whether a field name marks a map-backed address
// picker ("address"/"endereco" in any casing).
func IsAddressName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "address") || strings.Contains(lower, "endereco")
}

// IsCoordinateName reports whether a field holds a geographic coordinate.
// Such number fields are forced read-only: their values only arrive through
// the geocoding batch write.
func IsCoordinateName(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude") {
		return true
	}
	return strings.HasSuffix(lower, "lat") || strings.HasSuffix(lower, "lng") || strings.HasSuffix(lower, "lon")
}

// IsBirthDateName reports whether a date field is a birth date
// ("birth"/"nasc" in any casing).
func IsBirthDateName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "birth") || strings.Contains(lower, "nasc")
}

// HasTimeComponent reports whether a date format string carries hours or
// minutes, covering both moment-style ("HH:mm") and Go reference layouts.
func HasTimeComponent(format string) bool {
	if format == "" {
		return false
	}
	return strings.Contains(format, "HH") || strings.Contains(format, "hh") ||
		strings.Contains(format, "15:04") || strings.Contains(format, ":")
}
