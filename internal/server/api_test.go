package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/explorer"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
)

type stubTraverser struct {
	paths []graph.PathRecord
	err   error
	last  graph.Query
}

func (s *stubTraverser) Name() string { return "stub" }

func (s *stubTraverser) Traverse(ctx context.Context, q graph.Query) ([]graph.PathRecord, error) {
	s.last = q
	return s.paths, s.err
}

type stubSummarizer map[string]string

func (s stubSummarizer) Summary(ctx context.Context, title string) (string, error) {
	return s[title], nil
}

func newTestAPI(t *testing.T, tr graph.Traverser, opts ...APIOption) http.Handler {
	t.Helper()
	return NewAPI(explorer.New(tr), opts...).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPI_Graph(t *testing.T) {
	tr := &stubTraverser{paths: []graph.PathRecord{
		graph.NewPath("apple", "fruit"),
		graph.NewPath("apple", "fruit", "seed"),
	}}
	h := newTestAPI(t, tr)

	w := post(t, h, "/api/v1/graph", `{"word":"Apple"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if tr.last.Depth != DefaultDepth {
		t.Fatalf("expected default depth %d, got %d", DefaultDepth, tr.last.Depth)
	}

	var resp explorer.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.View == nil || resp.View.Mode != graph.ModeOneRoot {
		t.Fatalf("expected one-root view, got %+v", resp.View)
	}
	if len(resp.Relations) != 2 {
		t.Fatalf("expected 2 relations, got %v", resp.Relations)
	}
	if resp.Paths != nil {
		t.Fatalf("expected no paths unless requested, got %v", resp.Paths)
	}
}

func TestAPI_ConnectIncludesPaths(t *testing.T) {
	tr := &stubTraverser{paths: []graph.PathRecord{
		graph.NewPath("cat", "animal", "organism"),
	}}
	h := newTestAPI(t, tr)

	w := post(t, h, "/api/v1/connect", `{"source":"cat","target":"organism","depth":3,"include_paths":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(tr.last.Roots) != 2 || tr.last.Roots[1] != "organism" {
		t.Fatalf("expected two roots, got %v", tr.last.Roots)
	}

	var resp explorer.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Paths) != 1 || len(resp.Paths[0].Nodes) != 3 {
		t.Fatalf("expected the chain to be returned, got %v", resp.Paths)
	}
}

func TestAPI_BadRequests(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/api/v1/graph", `{"word":`},
		{"unknown field", "/api/v1/graph", `{"word":"apple","color":"red"}`},
		{"missing word", "/api/v1/graph", `{"depth":2}`},
		{"hostile word", "/api/v1/graph", `{"word":"apple\"}) DETACH DELETE n //"}`},
		{"negative depth", "/api/v1/graph", `{"word":"apple","depth":-1}`},
		{"depth too large", "/api/v1/graph", `{"word":"apple","depth":99}`},
		{"missing target", "/api/v1/connect", `{"source":"cat"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Fatalf("expected error body, got %q", w.Body.String())
			}
		})
	}
}

func TestAPI_TransportFailureDegrades(t *testing.T) {
	tr := &stubTraverser{err: fmt.Errorf("dial: %w", graph.ErrTransport)}
	h := newTestAPI(t, tr)

	w := post(t, h, "/api/v1/graph", `{"word":"apple","depth":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp explorer.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Degraded {
		t.Fatal("expected degraded response")
	}
	if len(resp.View.Nodes) != 1 || resp.View.Nodes[0].ID != "apple" {
		t.Fatalf("expected roots-only view, got %+v", resp.View.Nodes)
	}
}

func TestAPI_DecodeFailureIsBadGateway(t *testing.T) {
	tr := &stubTraverser{err: fmt.Errorf("results: %w", graph.ErrDecode)}
	h := newTestAPI(t, tr)

	w := post(t, h, "/api/v1/graph", `{"word":"apple","depth":1}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no data") {
		t.Fatalf("expected no data message, got %s", w.Body.String())
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frequencies.csv")
	if err := os.WriteFile(path, []byte("word,frequency\ndog,1\nrun,5\nfurry,2\n"), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

var pastTense = lexicon.LemmatizerFunc(func(w string) string {
	if w == "ran" {
		return "run"
	}
	return w
})

func newScorer(path string, opts ...complexity.Option) *complexity.Scorer {
	opts = append([]complexity.Option{complexity.WithTablePath(path)}, opts...)
	return complexity.NewScorer(lexicon.NewNormalizer(lexicon.DefaultStopwords()), pastTense, opts...)
}

func TestAPI_Complexity(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{}, WithScorer(newScorer(writeTable(t))))

	w := post(t, h, "/api/v1/complexity", `{"text":"The dog ran."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res complexity.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Score == nil || *res.Score != 3.0 {
		t.Fatalf("expected score 3.0, got %v", res.Score)
	}
}

func TestAPI_ComplexityDivisionByZero(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{}, WithScorer(newScorer(writeTable(t))))

	w := post(t, h, "/api/v1/complexity", `{"text":""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res complexity.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Score != nil || !res.DivisionByZero {
		t.Fatalf("expected division-by-zero sentinel, got %+v", res)
	}
}

func TestAPI_ComplexityAugment(t *testing.T) {
	scorer := newScorer(writeTable(t), complexity.WithSummarizer(stubSummarizer{"zorb": "a furry dog"}))

	// Augmentation on by default, request does not choose.
	h := newTestAPI(t, &stubTraverser{}, WithScorer(scorer), WithAugmentDefault(true))
	w := post(t, h, "/api/v1/complexity", `{"text":"dog zorb"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res complexity.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Augmented != 2 {
		t.Fatalf("expected 2 augmented matches, got %d", res.Augmented)
	}

	// Explicit opt-out wins over the default.
	w = post(t, h, "/api/v1/complexity", `{"text":"dog zorb","augment":false}`)
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Augmented != 0 {
		t.Fatalf("expected no augmentation, got %d", res.Augmented)
	}
}

func TestAPI_ComplexityAugmentUnavailable(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{}, WithScorer(newScorer(writeTable(t))))

	w := post(t, h, "/api/v1/complexity", `{"text":"dog","augment":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPI_ComplexityMissingTable(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{}, WithScorer(newScorer(filepath.Join(t.TempDir(), "none.csv"))))

	w := post(t, h, "/api/v1/complexity", `{"text":"dog"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAPI_ComplexityDisabledWithoutScorer(t *testing.T) {
	h := newTestAPI(t, &stubTraverser{})

	w := post(t, h, "/api/v1/complexity", `{"text":"dog"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPI_Metrics(t *testing.T) {
	m := observability.NewMetrics(nil)
	tr := &stubTraverser{paths: []graph.PathRecord{graph.NewPath("apple", "fruit")}}
	h := NewAPI(explorer.New(tr, explorer.WithMetrics(m)), WithMetrics(m)).Handler()

	post(t, h, "/api/v1/graph", `{"word":"apple","depth":1}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `strategy="stub"`) {
		t.Fatalf("expected traversal metrics for the stub strategy, got:\n%s", w.Body.String())
	}
}
