// Package local builds concept-graph paths by expanding stored definitions
// level by level instead of querying a graph store.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/efebarandurmaz/conceptgraph/internal/dictionary"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 8
	DefaultMaxWords    = 5000
)

// DefinitionSource resolves a word to its dictionary entry. A miss is
// reported with dictionary.ErrNotFound.
type DefinitionSource interface {
	Lookup(ctx context.Context, word string) (*dictionary.Word, error)
}

// Expander walks definitions outward from the root words. Every word is
// expanded at most once and keeps the shallowest depth it was reached at,
// so cycles in the definition graph terminate.
type Expander struct {
	source      DefinitionSource
	normalizer  *lexicon.Normalizer
	concurrency int
	maxWords    int
	logger      *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithConcurrency bounds concurrent definition lookups per level.
func WithConcurrency(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMaxWords caps the number of distinct words discovered.
func WithMaxWords(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxWords = n
		}
	}
}

// WithLogger sets the expander's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) { e.logger = l }
}

// New creates an Expander reading definitions from source.
func New(source DefinitionSource, normalizer *lexicon.Normalizer, opts ...Option) *Expander {
	e := &Expander{
		source:      source,
		normalizer:  normalizer,
		concurrency: DefaultConcurrency,
		maxWords:    DefaultMaxWords,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expansion is the result of one expansion.
type Expansion struct {
	Paths []graph.PathRecord
	// Depths maps every discovered word to the level it was first reached
	// at; roots are at depth 0.
	Depths map[string]int
	// Truncated reports that the word cap stopped discovery early.
	Truncated bool
}

// Name implements graph.Traverser.
func (e *Expander) Name() string { return string(graph.StrategyLocal) }

// Traverse implements graph.Traverser.
func (e *Expander) Traverse(ctx context.Context, q graph.Query) ([]graph.PathRecord, error) {
	exp, err := e.Expand(ctx, q)
	if err != nil {
		return nil, err
	}
	return exp.Paths, nil
}

// Expand runs a breadth-first expansion to q.Depth levels. In one-root mode
// every (word, definition word) edge found becomes a two-node path. In
// two-root mode the single shortest chain from source to target is returned,
// or no paths when the target is not reached.
func (e *Expander) Expand(ctx context.Context, q graph.Query) (*Expansion, error) {
	if q.Depth < 1 || len(q.Roots) == 0 || len(q.Roots) > 2 {
		return nil, fmt.Errorf("%w: depth %d with %d roots", graph.ErrInvalidQuery, q.Depth, len(q.Roots))
	}

	root := q.Root()
	exp := &Expansion{Paths: []graph.PathRecord{}, Depths: map[string]int{root: 0}}
	parent := map[string]string{}
	frontier := []string{root}

	for level := 1; level <= q.Depth && len(frontier) > 0; level++ {
		defs, err := e.definitions(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for i, word := range frontier {
			for _, token := range defs[i] {
				if q.Mode() == graph.ModeOneRoot {
					exp.Paths = append(exp.Paths, graph.NewPath(word, token))
				}
				if _, seen := exp.Depths[token]; seen {
					continue
				}
				if len(exp.Depths) >= e.maxWords {
					exp.Truncated = true
					continue
				}
				exp.Depths[token] = level
				parent[token] = word
				next = append(next, token)
			}
		}

		if q.Mode() == graph.ModeTwoRoot {
			if _, ok := exp.Depths[q.Target()]; ok {
				exp.Paths = append(exp.Paths, chain(parent, root, q.Target()))
				break
			}
		}
		frontier = next
	}

	if exp.Truncated {
		e.logger.Warn("local expansion truncated", "root", root, "max_words", e.maxWords)
	}
	e.logger.Debug("local expansion complete", "root", root, "words", len(exp.Depths), "paths", len(exp.Paths))
	return exp, nil
}

// definitions fetches the sorted distinct definition words of each frontier
// word concurrently. A dictionary miss leaves that word a leaf.
func (e *Expander) definitions(ctx context.Context, frontier []string) ([][]string, error) {
	out := make([][]string, len(frontier))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, word := range frontier {
		g.Go(func() error {
			w, err := e.source.Lookup(gctx, word)
			if errors.Is(err, dictionary.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: lookup %q: %v", graph.ErrTransport, word, err)
			}
			set := e.normalizer.TokenSet(w.Definition, false)
			tokens := make([]string, 0, len(set))
			for tok := range set {
				tokens = append(tokens, tok)
			}
			sort.Strings(tokens)
			out[i] = tokens
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func chain(parent map[string]string, root, target string) graph.PathRecord {
	nodes := []string{target}
	for w := target; w != root; {
		w = parent[w]
		nodes = append(nodes, w)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return graph.NewPath(nodes...)
}

var _ graph.Traverser = (*Expander)(nil)
