package neo4j

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/graph"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

// HTTPConfig configures the transactional HTTP endpoint client.
type HTTPConfig struct {
	// Endpoint is the commit URL, e.g. http://localhost:7474/db/neo4j/tx/commit.
	Endpoint string
	Username string
	Password string
	// Timeout bounds one request/response exchange (0 = no limit).
	Timeout time.Duration
	// UseTextIndex adds a text-index hint to one-root queries.
	UseTextIndex bool
	// Transport overrides the per-call transport. When nil a fresh transport
	// is built for every call and its idle connections closed afterwards.
	Transport http.RoundTripper
}

// HTTPTraverser fetches and decodes paths from the transactional endpoint.
type HTTPTraverser struct {
	cfg HTTPConfig
}

// NewHTTPTraverser creates a traverser for the given endpoint.
func NewHTTPTraverser(cfg HTTPConfig) *HTTPTraverser {
	return &HTTPTraverser{cfg: cfg}
}

// Name implements graph.Traverser.
func (t *HTTPTraverser) Name() string { return string(graph.StrategyHTTP) }

// Traverse implements graph.Traverser.
func (t *HTTPTraverser) Traverse(ctx context.Context, q graph.Query) ([]graph.PathRecord, error) {
	raw, err := t.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodePaths(raw)
}

type txRequest struct {
	Statements []Statement `json:"statements"`
}

// Fetch posts the query for q and returns the raw response body. Any
// transport error or non-2xx status is wrapped in graph.ErrTransport.
func (t *HTTPTraverser) Fetch(ctx context.Context, q graph.Query) ([]byte, error) {
	stmt, err := BuildStatement(q, t.cfg.UseTextIndex)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(txRequest{Statements: []Statement{stmt}})
	if err != nil {
		return nil, fmt.Errorf("marshal statement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", graph.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json;charset=UTF-8")
	if t.cfg.Username != "" {
		req.SetBasicAuth(t.cfg.Username, t.cfg.Password)
	}

	client := t.newClient()
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", graph.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", graph.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", graph.ErrTransport, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

func (t *HTTPTraverser) newClient() *http.Client {
	transport := t.cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &http.Client{Transport: transport, Timeout: t.cfg.Timeout}
}

var _ graph.Traverser = (*HTTPTraverser)(nil)
