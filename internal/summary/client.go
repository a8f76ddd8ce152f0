// Package summary fetches short encyclopedic summaries used to augment
// complexity scoring for words absent from the frequency table.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"golang.org/x/time/rate"
)

// ErrNoSummary reports that the API had no summary for a title. Callers
// treat it as "no augmentation", not as a failure.
var ErrNoSummary = errors.New("no summary available")

const (
	DefaultEndpoint  = "https://en.wikipedia.org/api/rest_v1"
	DefaultUserAgent = "conceptgraph/0.1 (+https://github.com/efebarandurmaz/conceptgraph)"
	maxSummaryBytes  = 1 << 20
)

// Config configures the summary client.
type Config struct {
	// Endpoint is the REST base URL; summaries live under /page/summary/{title}.
	Endpoint  string
	UserAgent string
	// RequestsPerSecond limits outgoing calls (0 = unlimited).
	RequestsPerSecond float64
	Burst             int
	Retry             *RetryConfig
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client looks up page summaries over HTTP.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     *RetryConfig
	logger    *slog.Logger
}

// NewClient creates a summary client.
func NewClient(cfg Config) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryConfig()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		endpoint:  endpoint,
		userAgent: userAgent,
		http:      &http.Client{Transport: transport},
		limiter:   rate.NewLimiter(limit, burst),
		retry:     retry,
		logger:    slog.Default(),
	}
}

type pageSummary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Summary returns the plain-text extract for title. A non-success response
// or an empty extract yields ErrNoSummary.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrNoSummary
	}

	ctx, span := observability.StartSummarySpan(ctx, title)
	defer span.End()

	start := time.Now()
	extract, err := withRetry(ctx, c.retry, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return c.fetch(ctx, title)
	})

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		err = fmt.Errorf("%w: %v", ErrNoSummary, statusErr)
	}
	if err != nil {
		observability.RecordError(span, err)
		c.logger.Debug("summary lookup failed", "title", title, "error", err, "duration", time.Since(start))
		return "", err
	}
	return extract, nil
}

func (c *Client) fetch(ctx context.Context, title string) (string, error) {
	u := c.endpoint + "/page/summary/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxSummaryBytes))
		return "", &StatusError{Code: resp.StatusCode}
	}

	var page pageSummary
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSummaryBytes)).Decode(&page); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrNoSummary, err)
	}
	if strings.TrimSpace(page.Extract) == "" {
		return "", ErrNoSummary
	}
	return page.Extract, nil
}
