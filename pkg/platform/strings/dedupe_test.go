package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "case duplicates collapse", input: []string{"Principal", "PRINCIPAL", "dean"}, expected: []string{"principal", "dean"}},
		{name: "whitespace and empties dropped", input: []string{"  director ", "", "   "}, expected: []string{"director"}},
		{name: "first occurrence order kept", input: []string{"b", "a", "B"}, expected: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
