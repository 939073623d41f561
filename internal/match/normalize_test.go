package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lower-cases and trims", "  ACME Widgets  ", "acme widgets"},
		{"strips punctuation", "Acme, Widgets & Co!", "acme widgets co"},
		{"collapses ltd to limited", "ACME Ltd", "acme limited"},
		{"collapses dotted ltd", "Acme Ltd.", "acme limited"},
		{"keeps limited as is", "Acme Limited", "acme limited"},
		{"collapses dotted plc", "Acme P.L.C.", "acme plc"},
		{"plc stays plc", "Acme plc", "acme plc"},
		{"collapses internal whitespace", "acme   widgets\t limited", "acme widgets limited"},
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"punctuation only", ".,:;!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeNameIsIdempotent(t *testing.T) {
	inputs := []string{"ACME Ltd", "Acme, Widgets & Co", "  spaced   out  "}
	for _, input := range inputs {
		once := NormalizeName(input)
		assert.Equal(t, once, NormalizeName(once))
	}
}

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "AB1 2CD", NormalizePostcode(" ab1 2cd "))
	assert.Equal(t, "", NormalizePostcode("   "))
}
