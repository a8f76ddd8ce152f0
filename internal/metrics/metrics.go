package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/dictionary"
	"github.com/efebarandurmaz/conceptgraph/internal/explorer"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
)

// RunMetrics collects statistics for a single CLI run.
type RunMetrics struct {
	Command    string             `json:"command"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at,omitempty"`
	Duration   time.Duration      `json:"duration_ms,omitempty"`
	Graph      *GraphMetrics      `json:"graph,omitempty"`
	Complexity *ComplexityMetrics `json:"complexity,omitempty"`
	Export     *ExportMetrics     `json:"export,omitempty"`
	Steps      []StepMetrics      `json:"steps"`
	Errors     []string           `json:"errors,omitempty"`
}

type GraphMetrics struct {
	Strategy  string   `json:"strategy"`
	Roots     []string `json:"roots"`
	Mode      string   `json:"mode"`
	Paths     int      `json:"paths"`
	Relations int      `json:"relations"`
	// Occurrences sums relation counts: every retained hop.
	Occurrences int            `json:"occurrences"`
	LongestPath int            `json:"longest_path"`
	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	RootDegrees map[string]int `json:"root_degrees,omitempty"`
	Degraded    bool           `json:"degraded"`
}

type ComplexityMetrics struct {
	Tokens         int      `json:"tokens"`
	Matched        int      `json:"matched"`
	Unknown        int      `json:"unknown"`
	Augmented      int      `json:"augmented"`
	Score          *float64 `json:"score"`
	DivisionByZero bool     `json:"division_by_zero"`
}

type ExportMetrics struct {
	Words      int `json:"words"`
	Skipped    int `json:"skipped"`
	Edges      int `json:"edges"`
	TotalBytes int `json:"total_bytes"`
}

type StepMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Errors   int           `json:"errors"`
}

// New starts tracking a run of command.
func New(command string) *RunMetrics {
	return &RunMetrics{Command: command, StartedAt: time.Now()}
}

// CollectGraph records the shape of an exploration result.
func (m *RunMetrics) CollectGraph(resp *explorer.Response) {
	if resp == nil {
		return
	}
	g := &GraphMetrics{
		Strategy:    resp.Strategy,
		Paths:       len(resp.Paths),
		Relations:   len(resp.Relations),
		Occurrences: graph.RelationsFrom(resp.Relations).Total(),
		Degraded:    resp.Degraded,
	}
	for _, p := range resp.Paths {
		g.LongestPath = max(g.LongestPath, p.Len())
	}
	if resp.View != nil {
		g.Roots = resp.View.Roots
		g.Mode = string(resp.View.Mode)
		g.Nodes = len(resp.View.Nodes)
		g.Edges = len(resp.View.Edges)
		g.RootDegrees = make(map[string]int, len(resp.View.Roots))
		for _, root := range resp.View.Roots {
			if n, ok := resp.View.Node(root); ok {
				g.RootDegrees[root] = n.Degree
			}
		}
	}
	m.Graph = g
}

// CollectComplexity records a scoring result.
func (m *RunMetrics) CollectComplexity(res *complexity.Result) {
	if res == nil {
		return
	}
	m.Complexity = &ComplexityMetrics{
		Tokens:         res.Tokens,
		Matched:        res.Matched,
		Unknown:        len(res.UnknownTokens),
		Augmented:      res.Augmented,
		Score:          res.Score,
		DivisionByZero: res.DivisionByZero,
	}
}

// CollectExport records a definition-edge export.
func (m *RunMetrics) CollectExport(stats dictionary.ExportStats, totalBytes int) {
	m.Export = &ExportMetrics{
		Words:      stats.Words,
		Skipped:    stats.Skipped,
		Edges:      stats.Edges,
		TotalBytes: totalBytes,
	}
}

// AddStep records a single step's timing and status.
func (m *RunMetrics) AddStep(name string, d time.Duration, errCount int) {
	m.Steps = append(m.Steps, StepMetrics{
		Name:     name,
		Duration: d,
		Errors:   errCount,
	})
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        CONCEPTGRAPH RUN REPORT       ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Command:     %-23s║\n", m.Command)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	if g := m.Graph; g != nil {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ GRAPH (%s, %s)\n", g.Strategy, g.Mode)
		fmt.Fprintf(w, "║   Roots:       %s\n", strings.Join(g.Roots, ", "))
		fmt.Fprintf(w, "║   Paths:       %d\n", g.Paths)
		fmt.Fprintf(w, "║   Relations:   %d (%d hops)\n", g.Relations, g.Occurrences)
		if g.LongestPath > 0 {
			fmt.Fprintf(w, "║   Longest:     %d hops\n", g.LongestPath)
		}
		fmt.Fprintf(w, "║   Nodes:       %d\n", g.Nodes)
		fmt.Fprintf(w, "║   Edges:       %d\n", g.Edges)
		for _, root := range g.Roots {
			if d, ok := g.RootDegrees[root]; ok {
				fmt.Fprintf(w, "║   Degree(%s): %d\n", root, d)
			}
		}
		if g.Degraded {
			fmt.Fprintf(w, "║   Degraded:    graph store unavailable\n")
		}
	}
	if c := m.Complexity; c != nil {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ COMPLEXITY\n")
		fmt.Fprintf(w, "║   Tokens:      %d\n", c.Tokens)
		fmt.Fprintf(w, "║   Matched:     %d\n", c.Matched)
		fmt.Fprintf(w, "║   Unknown:     %d\n", c.Unknown)
		fmt.Fprintf(w, "║   Augmented:   %d\n", c.Augmented)
		if c.DivisionByZero {
			fmt.Fprintf(w, "║   Score:       n/a (no resolvable tokens)\n")
		} else if c.Score != nil {
			fmt.Fprintf(w, "║   Score:       %.4f\n", *c.Score)
		}
	}
	if e := m.Export; e != nil {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ EXPORT\n")
		fmt.Fprintf(w, "║   Words:       %d\n", e.Words)
		fmt.Fprintf(w, "║   Skipped:     %d\n", e.Skipped)
		fmt.Fprintf(w, "║   Edges:       %d\n", e.Edges)
		fmt.Fprintf(w, "║   Total Size:  %s\n", formatBytes(e.TotalBytes))
	}
	if len(m.Steps) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ STEPS\n")
		for _, s := range m.Steps {
			status := "OK"
			if s.Errors > 0 {
				status = fmt.Sprintf("%d errors", s.Errors)
			}
			fmt.Fprintf(w, "║   %-14s %8s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func formatBytes(b int) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
