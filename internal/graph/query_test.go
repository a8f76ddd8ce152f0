package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuery_Normalizes(t *testing.T) {
	q := NewQuery(2, "  Defenestration ")
	assert.Equal(t, []string{"defenestration"}, q.Roots)
	assert.Equal(t, ModeOneRoot, q.Mode())
	assert.Equal(t, "defenestration", q.Root())
	assert.Equal(t, "", q.Target())

	two := NewQuery(3, "Dog", "cat")
	assert.Equal(t, ModeTwoRoot, two.Mode())
	assert.Equal(t, "cat", two.Target())
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name     string
		q        Query
		maxDepth int
		wantErr  bool
	}{
		{"one root", NewQuery(2, "run"), 3, false},
		{"two roots", NewQuery(5, "dog", "cat"), 5, false},
		{"hyphenated", NewQuery(1, "well-being"), 0, false},
		{"apostrophe", NewQuery(1, "o'clock"), 0, false},
		{"accented", NewQuery(1, "café"), 0, false},
		{"no roots", Query{Depth: 1}, 0, true},
		{"three roots", NewQuery(1, "a", "b", "c"), 0, true},
		{"same roots", NewQuery(1, "dog", "Dog"), 0, true},
		{"zero depth", NewQuery(0, "run"), 0, true},
		{"depth over max", NewQuery(4, "run"), 3, true},
		{"empty word", NewQuery(1, "  "), 0, true},
		{"cypher injection", NewQuery(1, "run' OR 1=1 //"), 0, true},
		{"brace injection", NewQuery(1, "run}) DETACH DELETE w"), 0, true},
		{"trailing hyphen", NewQuery(1, "run-"), 0, true},
		{"double joiner", NewQuery(1, "run--fast"), 0, true},
		{"too long", NewQuery(1, strings.Repeat("a", MaxWordLength+1)), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate(tt.maxDepth)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
