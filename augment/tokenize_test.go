package augment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "simple",
			input: "The cat sat",
			want:  []Token{{"The", 0}, {"cat", 4}, {"sat", 8}},
		},
		{
			name:  "consecutive whitespace",
			input: "a  b\t\nc",
			want:  []Token{{"a", 0}, {"b", 3}, {"c", 6}},
		},
		{
			name:  "leading and trailing whitespace",
			input: "  hi  ",
			want:  []Token{{"hi", 2}},
		},
		{
			name:  "all whitespace",
			input: " \t \n ",
			want:  nil,
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "single token",
			input: "word",
			want:  []Token{{"word", 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every token's CharStart must index correctly into the source string, so
// that slicing the source at the recorded offsets reproduces each token.
func TestTokenizeOffsetsIndexSource(t *testing.T) {
	inputs := []string{
		"The quick  brown\tfox",
		"  padded   with many   spaces  ",
		"one",
		"a b c d e f",
		"newlines\nbetween\nwords",
	}
	for _, input := range inputs {
		tokens := Tokenize(input)
		for _, tok := range tokens {
			require.LessOrEqual(t, tok.CharStart+len(tok.Text), len(input))
			assert.Equal(t, tok.Text, input[tok.CharStart:tok.CharStart+len(tok.Text)],
				"token %q at offset %d in %q", tok.Text, tok.CharStart, input)
		}
	}
}

// Rebuilding the string from the tokens plus the original separating
// characters must reproduce the source exactly.
func TestTokenizeLosslessReconstruction(t *testing.T) {
	inputs := []string{
		"The quick  brown\tfox",
		" leading space",
		"trailing space ",
		"inner \t mixed \n runs",
	}
	for _, input := range inputs {
		tokens := Tokenize(input)
		rebuilt := []byte(nil)
		pos := 0
		for _, tok := range tokens {
			rebuilt = append(rebuilt, input[pos:tok.CharStart]...)
			rebuilt = append(rebuilt, tok.Text...)
			pos = tok.CharStart + len(tok.Text)
		}
		rebuilt = append(rebuilt, input[pos:]...)
		assert.Equal(t, input, string(rebuilt))
	}
}
