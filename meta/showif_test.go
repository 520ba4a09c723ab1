package meta

import (
	"testing"

	metaform "github.com/eventara/metaform"
	"github.com/stretchr/testify/require"
)

func TestShowIf(t *testing.T) {
	rec := metaform.Record{
		"hasDelivery": true,
		"status":      "PUBLISHED",
		"capacity":    100.0,
		"notes":       "",
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"hasDelivery", true},
		{"!hasDelivery", false},
		{"notes", false},
		{"!notes", true},
		{"missing", false},
		{"!missing", true},
		{"status=PUBLISHED", true},
		{"status='PUBLISHED'", true},
		{"status=DRAFT", false},
		{"status!=DRAFT", true},
		{"status!=PUBLISHED", false},
		{"capacity=100", true},
		{"capacity!=100", false},
		{"hasDelivery=true", true},
		{"hasDelivery=false", false},
		{"status=PUB*", true},
		{"status=DRA*", false},
		{"status!=PUB*", false},
		{"missing=", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			require.Equal(t, tt.want, ShowIf(tt.expr, rec))
		})
	}
}
