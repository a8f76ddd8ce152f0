package dictionary

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
)

// EdgeHeader is the header row of the definition-edge CSV.
var EdgeHeader = []string{"word", "word_in_definition", "word_count"}

// DefinitionEdge counts how often a word appears in another word's definition.
type DefinitionEdge struct {
	Word             string
	WordInDefinition string
	Count            int
}

// DefinitionEdges cleans w's definition and counts each definition word,
// stopwords included. Edges are ordered by definition word. An empty
// definition yields no edges.
func DefinitionEdges(w Word, n *lexicon.Normalizer) []DefinitionEdge {
	counts := n.Counter(w.Definition, false)
	if len(counts) == 0 {
		return nil
	}
	edges := make([]DefinitionEdge, 0, len(counts))
	for token, c := range counts {
		edges = append(edges, DefinitionEdge{Word: w.Value, WordInDefinition: token, Count: c})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].WordInDefinition < edges[j].WordInDefinition })
	return edges
}

// ExportStats summarizes an edge export.
type ExportStats struct {
	Words   int `json:"words"`
	Skipped int `json:"skipped"`
	Edges   int `json:"edges"`
}

// ExportEdges writes the definition edges of every stored word as CSV rows
// word,word_in_definition,word_count. Words without a definition are skipped.
func (s *SQLiteStore) ExportEdges(ctx context.Context, n *lexicon.Normalizer, out io.Writer) (ExportStats, error) {
	var stats ExportStats
	cw := csv.NewWriter(out)
	if err := cw.Write(EdgeHeader); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	err := s.Each(ctx, func(w Word) error {
		stats.Words++
		edges := DefinitionEdges(w, n)
		if len(edges) == 0 {
			stats.Skipped++
			return nil
		}
		for _, e := range edges {
			if err := cw.Write([]string{e.Word, e.WordInDefinition, strconv.Itoa(e.Count)}); err != nil {
				return fmt.Errorf("write edge: %w", err)
			}
			stats.Edges++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("flush edges: %w", err)
	}
	s.logger.Info("definition edges exported", "words", stats.Words, "skipped", stats.Skipped, "edges", stats.Edges)
	return stats, nil
}
