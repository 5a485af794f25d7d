package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"East High School", []string{"east", "high", "school"}},
		{"Adams 12 Five Star Schools", []string{"adams", "five", "star", "schools"}},
		{"José Martí MAST 6-12 Academy", []string{"jose", "marti", "mast", "academy"}},
		{"  ", nil},
		{"St. Vrain Valley RE-1J", []string{"st", "vrain", "valley", "re", "j"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.in), "input %q", tt.in)
	}
}

func TestStopWords(t *testing.T) {
	for _, w := range []string{"school", "district", "high", "middle", "elementary", "academy", "charter"} {
		_, ok := StopWords[w]
		assert.True(t, ok, "missing stop word %q", w)
	}
}
