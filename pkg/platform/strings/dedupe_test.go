package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "broker list", input: []string{"k1:9092", " k2:9092", "k1:9092"}, expected: []string{"k1:9092", "k2:9092"}},
		{name: "trailing separator", input: []string{"A", "B", ""}, expected: []string{"A", "B"}},
		{name: "only blanks", input: []string{" ", ""}, expected: []string{}},
		{name: "order preserved", input: []string{"C", "A", "C", "B"}, expected: []string{"C", "A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
