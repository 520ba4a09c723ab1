package mask

import (
	"testing"

	metaform "github.com/eventara/metaform"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		field string
		want  Kind
	}{
		{"cpf", CPF},
		{"ownerCpf", CPF},
		{"cnpj", CNPJ},
		{"companyCnpj", CNPJ},
		{"phone", Phone},
		{"telefone", Phone},
		{"celular", Phone},
		{"whatsapp", Phone},
		{"telefoneFixo", Landline},
		{"landlinePhone", Landline},
		{"cep", CEP},
		{"zipcode", CEP},
		{"postalCode", CEP},
		{"name", None},
		{"email", None},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			require.Equal(t, tt.want, Detect(tt.field))
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		value string
		kind  Kind
		want  string
	}{
		{"cpf_full", "12345678901", CPF, "123.456.789-01"},
		{"cpf_partial", "12345", CPF, "123.45"},
		{"cpf_already_masked", "123.456.789-01", CPF, "123.456.789-01"},
		{"cnpj", "11222333000181", CNPJ, "11.222.333/0001-81"},
		{"phone_mobile", "11988887777", Phone, "(11) 98888-7777"},
		{"phone_short_input", "1133334444", Phone, "(11) 3333-4444"},
		{"landline", "1133334444", Landline, "(11) 3333-4444"},
		{"cep", "01310100", CEP, "01310-100"},
		{"none_passthrough", "hello", None, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Apply(tt.value, tt.kind))
		})
	}
}

func TestAutoApply(t *testing.T) {
	require.Equal(t, "123.456.789-01", AutoApply("cpf", "12345678901"))
	require.Equal(t, "free text", AutoApply("description", "free text"))
}

// Applying a mask and stripping it restores the original digit string.
func TestMaskRoundTrip(t *testing.T) {
	for _, digits := range []string{"12345678901", "98765432100", "00000000191"} {
		require.Equal(t, digits, Strip(Apply(digits, CPF)))
	}
}

func TestUnmaskPayload(t *testing.T) {
	payload := metaform.Record{
		"name": "Ana",
		"cpf":  "123.456.789-01",
		"organization": map[string]any{
			"cnpj":  "11.222.333/0001-81",
			"label": "Org",
		},
		"contacts": []any{
			map[string]any{"phone": "(11) 98888-7777", "note": "a-b"},
		},
	}
	out := UnmaskPayload(payload)

	require.Equal(t, "12345678901", out["cpf"])
	require.Equal(t, "Ana", out["name"])
	org := out["organization"].(map[string]any)
	require.Equal(t, "11222333000181", org["cnpj"])
	require.Equal(t, "Org", org["label"])
	contact := out["contacts"].([]any)[0].(map[string]any)
	require.Equal(t, "11988887777", contact["phone"])
	require.Equal(t, "a-b", contact["note"])

	// The original payload is untouched.
	require.Equal(t, "123.456.789-01", payload["cpf"])
}

func TestValidCPF(t *testing.T) {
	require.True(t, ValidCPF("529.982.247-25"))
	require.True(t, ValidCPF("52998224725"))
	require.False(t, ValidCPF("529.982.247-26"))
	require.False(t, ValidCPF("111.111.111-11"))
	require.False(t, ValidCPF("1234567890"))
}

func TestValidCNPJ(t *testing.T) {
	require.True(t, ValidCNPJ("11.222.333/0001-81"))
	require.True(t, ValidCNPJ("11222333000181"))
	require.False(t, ValidCNPJ("11.222.333/0001-82"))
	require.False(t, ValidCNPJ("00000000000000"))
	require.False(t, ValidCNPJ("1122233300018"))
}

func TestValidPhone(t *testing.T) {
	require.True(t, ValidPhone("(11) 98888-7777"))
	require.True(t, ValidPhone("1133334444"))
	require.False(t, ValidPhone("(01) 98888-7777")) // DDD below 11
	require.False(t, ValidPhone("(11) 88888-7777")) // 11 digits without mobile 9
	require.False(t, ValidPhone("123"))
}

func TestValidCEP(t *testing.T) {
	require.True(t, ValidCEP("01310-100"))
	require.True(t, ValidCEP("01310100"))
	require.False(t, ValidCEP("0131010"))
}
