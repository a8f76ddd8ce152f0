// Package neo4j traverses the word-definition graph stored in Neo4j, over
// either the transactional HTTP endpoint or the bolt driver.
package neo4j

import (
	"fmt"

	"github.com/efebarandurmaz/conceptgraph/internal/graph"
)

// DefinitionRel is the relationship from a word to each word of its definition.
const DefinitionRel = "HAS_WORD"

// Statement is a parameterized Cypher statement in the transactional API shape.
type Statement struct {
	Statement          string         `json:"statement"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	ResultDataContents []string       `json:"resultDataContents,omitempty"`
}

// BuildStatement renders q as Cypher. Root words travel only as bound
// parameters; the depth is an integer validated here before it is formatted
// into the variable-length bound, which Cypher cannot parameterize.
func BuildStatement(q graph.Query, useTextIndex bool) (Statement, error) {
	if q.Depth < 1 {
		return Statement{}, fmt.Errorf("%w: depth must be positive, got %d", graph.ErrInvalidQuery, q.Depth)
	}
	switch len(q.Roots) {
	case 1:
		match := "MATCH (w:Word {value: $word})"
		if useTextIndex {
			match = "MATCH (w:Word) USING TEXT INDEX w:Word(value) WHERE w.value = $word"
		}
		return Statement{
			Statement: fmt.Sprintf("%s MATCH p = (w)-[:%s*1..%d]->(:Word) RETURN p",
				match, DefinitionRel, q.Depth),
			Parameters:         map[string]any{"word": q.Roots[0]},
			ResultDataContents: []string{"row"},
		}, nil
	case 2:
		return Statement{
			Statement: fmt.Sprintf("MATCH (a:Word {value: $source}), (b:Word {value: $target}) "+
				"MATCH p = (a)-[:%s*1..%d]->(b) RETURN p ORDER BY length(p) ASC",
				DefinitionRel, q.Depth),
			Parameters:         map[string]any{"source": q.Roots[0], "target": q.Roots[1]},
			ResultDataContents: []string{"row"},
		}, nil
	default:
		return Statement{}, fmt.Errorf("%w: expected 1 or 2 roots, got %d", graph.ErrInvalidQuery, len(q.Roots))
	}
}
