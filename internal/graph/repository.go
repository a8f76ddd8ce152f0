package graph

import "context"

// Strategy names a traversal implementation.
type Strategy string

const (
	// StrategyHTTP queries the graph store's transactional HTTP endpoint.
	StrategyHTTP Strategy = "http"
	// StrategyBolt queries the graph store over the bolt driver.
	StrategyBolt Strategy = "bolt"
	// StrategyLocal expands stored definitions recursively without a graph store.
	StrategyLocal Strategy = "local"
)

// Traverser runs a bounded-depth traversal and returns the matched paths.
//
// Implementations own any network session for the duration of a single call
// and release it on every exit path. Transport problems are reported wrapped
// in ErrTransport, malformed payloads in ErrDecode.
type Traverser interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Traverse returns every path matched by q, in store order.
	Traverse(ctx context.Context, q Query) ([]PathRecord, error)
}
