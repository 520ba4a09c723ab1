// Package mask converts identifier-like fields (CPF, CNPJ, phone, CEP)
// between their human display format and the digit-only storage format the
// backend expects. Detection is purely by field name; no per-field
// configuration is required.
package mask

import (
	"strings"

	metaform "github.com/eventara/metaform"
)

// Kind identifies which mask applies to a field.
type Kind int

const (
	None Kind = iota
	CPF
	CNPJ
	Phone
	Landline
	CEP
)

const (
	patternCPF      = "999.999.999-99"
	patternCNPJ     = "99.999.999/9999-99"
	patternPhone    = "(99) 99999-9999"
	patternLandline = "(99) 9999-9999"
	patternCEP      = "99999-999"
)

// phoneKeywords is the fixed keyword list that marks a field as phone-like.
var phoneKeywords = []string{"phone", "telefone", "celular", "whatsapp", "fone", "mobile"}

// landlineKeywords additionally signal a fixed line, switching to the
// 8-digit subscriber pattern.
var landlineKeywords = []string{"fixo", "landline"}

var cepKeywords = []string{"cep", "zip", "postal"}

// String names the kind for logs and test output.
func (k Kind) String() string {
	switch k {
	case CPF:
		return "cpf"
	case CNPJ:
		return "cnpj"
	case Phone:
		return "phone"
	case Landline:
		return "landline"
	case CEP:
		return "cep"
	default:
		return "none"
	}
}

// Detect classifies a field name. Order matters: CPF, then CNPJ, then
// phone-like, then CEP-like; the first match wins.
func Detect(fieldName string) Kind {
	name := strings.ToLower(fieldName)
	switch {
	case strings.Contains(name, "cpf"):
		return CPF
	case strings.Contains(name, "cnpj"):
		return CNPJ
	case containsAny(name, phoneKeywords):
		if containsAny(name, landlineKeywords) {
			return Landline
		}
		return Phone
	case containsAny(name, cepKeywords):
		return CEP
	default:
		return None
	}
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Strip removes every non-digit character. It is the unmasking transform.
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Apply formats a value under the given mask kind. Input may already carry
// mask punctuation; it is stripped first, so Apply is safe for live input
// masking as the user types. Digits beyond the pattern are dropped.
func Apply(value string, kind Kind) string {
	digits := Strip(value)
	switch kind {
	case CPF:
		return applyPattern(digits, patternCPF)
	case CNPJ:
		return applyPattern(digits, patternCNPJ)
	case Phone:
		// 10-digit input still renders as a short subscriber number even on
		// a mobile-named field.
		if len(digits) <= 10 {
			return applyPattern(digits, patternLandline)
		}
		return applyPattern(digits, patternPhone)
	case Landline:
		return applyPattern(digits, patternLandline)
	case CEP:
		return applyPattern(digits, patternCEP)
	default:
		return value
	}
}

// AutoApply masks a value according to the field's detected kind, returning
// the value untouched when no mask applies.
func AutoApply(fieldName, value string) string {
	kind := Detect(fieldName)
	if kind == None {
		return value
	}
	return Apply(value, kind)
}

// applyPattern fills '9' placeholders with digits and copies literals.
// It stops as soon as the digits run out, producing partial masks for
// incomplete input.
func applyPattern(digits, pattern string) string {
	var b strings.Builder
	di := 0
	for _, p := range pattern {
		if di >= len(digits) {
			break
		}
		if p == '9' {
			b.WriteByte(digits[di])
			di++
		} else {
			b.WriteRune(p)
		}
	}
	return b.String()
}

// UnmaskPayload walks an entire submission payload and strips mask
// punctuation from every string field whose name matches a detector.
// Nested objects and arrays of objects are visited recursively; everything
// else is returned as-is.
func UnmaskPayload(payload metaform.Record) metaform.Record {
	out := make(metaform.Record, len(payload))
	for name, value := range payload {
		out[name] = unmaskValue(name, value)
	}
	return out
}

func unmaskValue(name string, value any) any {
	switch t := value.(type) {
	case string:
		if Detect(name) != None {
			return Strip(t)
		}
		return t
	case metaform.Record:
		return UnmaskPayload(t)
	case map[string]any:
		return map[string]any(UnmaskPayload(metaform.Record(t)))
	case []metaform.Record:
		items := make([]metaform.Record, len(t))
		for i, item := range t {
			items[i] = UnmaskPayload(item)
		}
		return items
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			// The element has no name of its own; field detection applies to
			// the members of object elements, not the array field itself.
			if m, ok := item.(map[string]any); ok {
				items[i] = map[string]any(UnmaskPayload(metaform.Record(m)))
			} else if r, ok := item.(metaform.Record); ok {
				items[i] = UnmaskPayload(r)
			} else {
				items[i] = item
			}
		}
		return items
	default:
		return value
	}
}
