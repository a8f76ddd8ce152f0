package graph

// PathRecord is one traversal match reduced to its node values, in path order.
type PathRecord struct {
	Nodes []string `json:"nodes"`
}

// NewPath builds a PathRecord from node values.
func NewPath(nodes ...string) PathRecord {
	return PathRecord{Nodes: nodes}
}

// Len returns the number of hops in the path.
func (p PathRecord) Len() int {
	if len(p.Nodes) == 0 {
		return 0
	}
	return len(p.Nodes) - 1
}
