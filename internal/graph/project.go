package graph

import "sort"

// Default presentation parameters.
const (
	DefaultBaseSize  = 25.0
	DefaultSizeScale = 10.0
	// DefaultOneRootWeightDivisor compensates for each definition link being
	// observed from both traversal directions in one-root queries.
	DefaultOneRootWeightDivisor = 2.0
)

// Node is a renderable word.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Size   float64 `json:"size"`
	Degree int     `json:"degree"`
	Root   bool    `json:"root,omitempty"`
}

// Edge is a renderable directed relation.
type Edge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// View is the presentation-ready node/edge model of a concept graph.
type View struct {
	Mode  Mode     `json:"mode"`
	Roots []string `json:"roots"`
	Nodes []Node   `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// Node returns the node with the given id.
func (v *View) Node(id string) (Node, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Projector turns relations into a View. It is a pure function of its inputs.
type Projector struct {
	BaseSize             float64
	SizeScale            float64
	OneRootWeightDivisor float64
}

// DefaultProjector returns a projector with the default presentation parameters.
func DefaultProjector() Projector {
	return Projector{
		BaseSize:             DefaultBaseSize,
		SizeScale:            DefaultSizeScale,
		OneRootWeightDivisor: DefaultOneRootWeightDivisor,
	}
}

// Project builds the view for q from rel. Root words are always present as
// nodes, even when rel is empty. Nodes are ordered roots first, then by id;
// edges by source, then target.
func (p Projector) Project(rel Relations, q Query) *View {
	degree := make(map[string]int)
	for k := range rel {
		degree[k.Source]++
		degree[k.Target]++
	}

	view := &View{
		Mode:  q.Mode(),
		Roots: append([]string(nil), q.Roots...),
		Nodes: make([]Node, 0, len(degree)+len(q.Roots)),
		Edges: make([]Edge, 0, len(rel)),
	}

	seen := make(map[string]bool, len(degree)+len(q.Roots))
	for _, r := range q.Roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		view.Nodes = append(view.Nodes, p.node(r, degree[r], true))
	}
	others := make([]string, 0, len(degree))
	for w := range degree {
		if !seen[w] {
			others = append(others, w)
		}
	}
	sort.Strings(others)
	for _, w := range others {
		view.Nodes = append(view.Nodes, p.node(w, degree[w], false))
	}

	divisor := 1.0
	if q.Mode() == ModeOneRoot && p.OneRootWeightDivisor > 0 {
		divisor = p.OneRootWeightDivisor
	}
	for _, r := range rel.Sorted() {
		view.Edges = append(view.Edges, Edge{
			ID:     r.Source + "->" + r.Target,
			Source: r.Source,
			Target: r.Target,
			Weight: float64(r.Count) / divisor,
			Count:  r.Count,
		})
	}
	return view
}

func (p Projector) node(word string, degree int, root bool) Node {
	return Node{
		ID:     word,
		Label:  word,
		Size:   p.BaseSize + float64(degree)*p.SizeScale,
		Degree: degree,
		Root:   root,
	}
}
