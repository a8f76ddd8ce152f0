package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type setFilter map[string]bool

func (s setFilter) Contains(w string) bool { return s[w] }

func TestAggregate_ConsecutivePairs(t *testing.T) {
	paths := []PathRecord{
		NewPath("run", "move", "swiftly", "foot"),
	}
	rel := Aggregate(paths, nil)
	assert.Equal(t, Relations{
		{"run", "move"}:     1,
		{"move", "swiftly"}: 1,
		{"swiftly", "foot"}: 1,
	}, rel)
	assert.Equal(t, 3, rel.Total())
}

func TestAggregate_TwoRootSinglePath(t *testing.T) {
	rel := Aggregate([]PathRecord{NewPath("A", "B", "C")}, nil)
	assert.Equal(t, Relations{{"A", "B"}: 1, {"B", "C"}: 1}, rel)
}

func TestAggregate_TalliesAcrossPaths(t *testing.T) {
	paths := []PathRecord{
		NewPath("run", "move"),
		NewPath("run", "move", "go"),
		NewPath("run", "go"),
	}
	rel := Aggregate(paths, nil)
	assert.Equal(t, 2, rel[Pair{"run", "move"}])
	assert.Equal(t, 1, rel[Pair{"move", "go"}])
	assert.Equal(t, 1, rel[Pair{"run", "go"}])
}

func TestAggregate_StopwordFilterIsPathAtomic(t *testing.T) {
	paths := []PathRecord{
		NewPath("run", "move", "the", "ground"),
		NewPath("run", "move"),
	}
	filter := setFilter{"the": true}

	filtered := Aggregate(paths, filter)
	assert.Equal(t, Relations{{"run", "move"}: 1}, filtered)

	unfiltered := Aggregate(paths, nil)
	assert.Equal(t, 2, unfiltered[Pair{"run", "move"}])
	assert.Equal(t, 1, unfiltered[Pair{"move", "the"}])

	// Filtering never adds pairs or raises counts.
	for k, c := range filtered {
		assert.LessOrEqual(t, c, unfiltered[k])
	}
}

func TestAggregate_PairIffConsecutiveInRetainedPath(t *testing.T) {
	paths := []PathRecord{
		NewPath("a", "b", "c"),
		NewPath("c", "a"),
		NewPath("x", "stop", "y"),
	}
	filter := setFilter{"stop": true}
	rel := Aggregate(paths, filter)

	retained := map[Pair]bool{}
	for _, p := range paths[:2] {
		for i := 1; i < len(p.Nodes); i++ {
			retained[Pair{p.Nodes[i-1], p.Nodes[i]}] = true
		}
	}
	assert.Len(t, rel, len(retained))
	for k := range rel {
		assert.True(t, retained[k], "unexpected relation %v", k)
	}
	assert.NotContains(t, rel, Pair{"a", "c"})
}

func TestAggregate_EmptyAndSingleNodePaths(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil))
	assert.Empty(t, Aggregate([]PathRecord{NewPath("alone"), {}}, nil))
}

func TestRelations_SortedAndRebuild(t *testing.T) {
	rel := Relations{{"b", "a"}: 2, {"a", "c"}: 1, {"a", "b"}: 3}
	sorted := rel.Sorted()
	assert.Equal(t, []Relation{
		{Source: "a", Target: "b", Count: 3},
		{Source: "a", Target: "c", Count: 1},
		{Source: "b", Target: "a", Count: 2},
	}, sorted)
	assert.Equal(t, rel, RelationsFrom(sorted))
}

func TestPathRecord_Len(t *testing.T) {
	assert.Equal(t, 0, PathRecord{}.Len())
	assert.Equal(t, 0, NewPath("a").Len())
	assert.Equal(t, 3, NewPath("a", "b", "c", "d").Len())
}
