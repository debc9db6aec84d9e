package sqlescape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "mtc_oauth2_clients", "`mtc_oauth2_clients`"},
		{"empty", "", "``"},
		{"embedded backtick", "evil`name", "`evil``name`"},
		{"only backticks", "```", "````````"},
		{"injection attempt", "x`; DROP TABLE users; --", "`x``; DROP TABLE users; --`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.input))
		})
	}
}

// The inner part of a quoted identifier must never contain a lone backtick:
// every backtick has to be part of a doubled pair.
func TestIdentifier_NoUnescapedBackticks(t *testing.T) {
	inputs := []string{"a`b", "`", "``", "a``b`c", "FK_818C32519EB6921"}
	for _, in := range inputs {
		out := Identifier(in)
		inner := out[1 : len(out)-1]
		stripped := strings.ReplaceAll(inner, "``", "")
		assert.NotContains(t, stripped, "`", "input %q produced unescaped backtick in %q", in, out)
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "FK_818C32519EB6921", "'FK_818C32519EB6921'"},
		{"empty", "", "''"},
		{"embedded quote", "o'brien", "'o''brien'"},
		{"injection attempt", "'; DROP TABLE leads; --", `'''; DROP TABLE leads; --'`},
		{"backslash", `a\'b`, `'a\\''b'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.input))
		})
	}
}

// A single quote in the input always yields a doubled pair; rescanning the
// quoted body must find no lone quote character.
func TestLiteral_NoUnescapedQuotes(t *testing.T) {
	inputs := []string{"'", "''", "a'b'c", "FK_' OR '1'='1"}
	for _, in := range inputs {
		out := Literal(in)
		inner := out[1 : len(out)-1]
		stripped := strings.ReplaceAll(inner, "''", "")
		assert.NotContains(t, stripped, "'", "input %q produced unescaped quote in %q", in, out)
	}
}
