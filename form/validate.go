package form

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/compute"
	"github.com/eventara/metaform/mask"
	"github.com/eventara/metaform/meta"
)

// minDeliveryKm is the floor under which origin and destination are
// considered the same point.
const minDeliveryKm = 0.1

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func compiledPattern(pattern string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// A broken backend pattern must not break the form; it just stops
		// constraining.
		re = nil
	}
	patternCache[pattern] = re
	return re
}

// Validate applies the declarative constraints to every visible field and
// collects one message per invalid field. Submission is blocked while the
// returned map is non-empty; the messages feed both the inline field errors
// and the summary banner.
func (f *Form) Validate() metaform.FieldErrors {
	errs := metaform.FieldErrors{}
	for _, field := range f.VisibleFields() {
		if msg := validateField(field, f.rec); msg != "" {
			errs.Add(field.Name, msg)
		}
	}
	return errs
}

// validateField checks one field against its descriptor: required-ness
// (booleans exempt), numeric bounds, length bounds (digit-only for masked
// identifiers), and the regex pattern. The declared message, when present,
// replaces every default.
func validateField(field meta.FieldMetadata, rec metaform.Record) string {
	value, present := rec[field.Name]
	if field.Required && field.Type != meta.TypeBoolean {
		if !present || isEmpty(value) {
			return messageOr(field, fmt.Sprintf("%s is required", labelOf(field)))
		}
	}
	if !present || value == nil {
		return ""
	}
	v := field.Validation
	if v == nil {
		return ""
	}
	if num, ok := metaform.AsFloat(value); ok {
		if v.Min != nil && num < *v.Min {
			return messageOr(field, fmt.Sprintf("%s must be at least %v", labelOf(field), *v.Min))
		}
		if v.Max != nil && num > *v.Max {
			return messageOr(field, fmt.Sprintf("%s must be at most %v", labelOf(field), *v.Max))
		}
	}
	if s, ok := value.(string); ok {
		length := len([]rune(s))
		// Masked identifiers count digits only, never mask punctuation:
		// "(11) 98888-7777" has length 11.
		if mask.Detect(field.Name) != mask.None {
			length = len(mask.Strip(s))
		}
		if v.MinLength != nil && length < *v.MinLength {
			return messageOr(field, fmt.Sprintf("%s must have at least %d characters", labelOf(field), *v.MinLength))
		}
		if v.MaxLength != nil && length > *v.MaxLength {
			return messageOr(field, fmt.Sprintf("%s must have at most %d characters", labelOf(field), *v.MaxLength))
		}
		if v.Pattern != "" && s != "" {
			if re := compiledPattern(v.Pattern); re != nil && !re.MatchString(s) {
				return messageOr(field, fmt.Sprintf("%s has an invalid format", labelOf(field)))
			}
		}
	}
	return ""
}

// isEmpty decides required-ness: empty strings, empty sequences and
// id-less relationship objects all count as missing. false does not; it is
// a valid boolean answer.
func isEmpty(value any) bool {
	switch t := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return false
	case []any:
		return len(t) == 0
	case []metaform.Record:
		return len(t) == 0
	case map[string]any, metaform.Record:
		_, ok := metaform.RelationID(t)
		return !ok
	default:
		return false
	}
}

func labelOf(field meta.FieldMetadata) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func messageOr(field meta.FieldMetadata, fallback string) string {
	if field.Validation != nil && field.Validation.Message != "" {
		return field.Validation.Message
	}
	return fallback
}

// deliveryDistanceGuard is the one named business rule layered on top of the
// generic validator: a delivery whose origin and destination collapse to the
// same point must not be submitted. It applies only to delivery-style
// endpoints and returns the user-facing message, or "" when the submission
// may proceed.
func (f *Form) deliveryDistanceGuard() string {
	if !strings.Contains(strings.ToLower(f.entity.ResolvedEndpoint()), "deliver") {
		return ""
	}
	distance, ok := f.resolveDistanceKm()
	if !ok {
		return ""
	}
	if distance < minDeliveryKm {
		return "Origem e destino estão no mesmo local"
	}
	return ""
}

// resolveDistanceKm reads an explicit numeric distance field when present,
// else derives it from the from/to coordinate pairs.
func (f *Form) resolveDistanceKm() (float64, bool) {
	for _, name := range []string{"distance", "distanceKm"} {
		if d := f.rec.Float(name); d.IsPresent() {
			return d.MustGet(), true
		}
	}
	fromLat := f.rec.Float("fromLatitude")
	fromLng := f.rec.Float("fromLongitude")
	toLat := f.rec.Float("toLatitude")
	toLng := f.rec.Float("toLongitude")
	if fromLat.IsAbsent() || fromLng.IsAbsent() || toLat.IsAbsent() || toLng.IsAbsent() {
		return 0, false
	}
	return compute.HaversineKm(fromLat.MustGet(), fromLng.MustGet(), toLat.MustGet(), toLng.MustGet()), true
}
