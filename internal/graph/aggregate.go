package graph

import "sort"

// Pair is a directed (source, target) word pair.
type Pair struct {
	Source string
	Target string
}

// Relation is a directed word pair with the number of times it was observed.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// Relations tallies directed word pairs. Keys have set semantics; counts are
// always positive.
type Relations map[Pair]int

// StopwordFilter reports whether a word is excluded from analysis.
type StopwordFilter interface {
	Contains(word string) bool
}

// Aggregate reduces decoded paths into relation counts. Every consecutive
// pair of node values in a path is one observation. When filter is non-nil a
// path containing any stopword is dropped whole.
func Aggregate(paths []PathRecord, filter StopwordFilter) Relations {
	rel := make(Relations)
	for _, p := range paths {
		if filter != nil && containsStopword(p, filter) {
			continue
		}
		for i := 1; i < len(p.Nodes); i++ {
			rel[Pair{Source: p.Nodes[i-1], Target: p.Nodes[i]}]++
		}
	}
	return rel
}

func containsStopword(p PathRecord, filter StopwordFilter) bool {
	for _, n := range p.Nodes {
		if filter.Contains(n) {
			return true
		}
	}
	return false
}

// Total returns the sum of all relation counts.
func (r Relations) Total() int {
	total := 0
	for _, c := range r {
		total += c
	}
	return total
}

// Sorted returns the relations ordered by source, then target.
func (r Relations) Sorted() []Relation {
	out := make([]Relation, 0, len(r))
	for k, c := range r {
		out = append(out, Relation{Source: k.Source, Target: k.Target, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// RelationsFrom rebuilds a Relations map from a relation list, summing
// duplicate pairs.
func RelationsFrom(list []Relation) Relations {
	rel := make(Relations, len(list))
	for _, r := range list {
		if r.Count > 0 {
			rel[Pair{Source: r.Source, Target: r.Target}] += r.Count
		}
	}
	return rel
}
