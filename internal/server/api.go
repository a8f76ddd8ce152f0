package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/efebarandurmaz/conceptgraph/internal/complexity"
	"github.com/efebarandurmaz/conceptgraph/internal/explorer"
	"github.com/efebarandurmaz/conceptgraph/internal/graph"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/go-playground/validator/v10"
)

// DefaultDepth is used when a graph request omits depth.
const DefaultDepth = 2

// maxBodyBytes bounds request bodies; complexity texts are the largest.
const maxBodyBytes = 1 << 20

// GraphRequest asks for the concept graph around one word.
type GraphRequest struct {
	Word             string `json:"word" validate:"required"`
	Depth            int    `json:"depth" validate:"gte=0"`
	IncludeStopwords bool   `json:"include_stopwords"`
	IncludePaths     bool   `json:"include_paths"`
}

// ConnectRequest asks for the shortest definition chain between two words.
type ConnectRequest struct {
	Source           string `json:"source" validate:"required"`
	Target           string `json:"target" validate:"required"`
	Depth            int    `json:"depth" validate:"gte=0"`
	IncludeStopwords bool   `json:"include_stopwords"`
	IncludePaths     bool   `json:"include_paths"`
}

// ComplexityRequest asks for the complexity index of a text. Augment
// defaults to the server configuration when omitted.
type ComplexityRequest struct {
	Text    string `json:"text" validate:"max=100000"`
	Augment *bool  `json:"augment"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// API serves the concept-graph and complexity endpoints.
type API struct {
	explorer *explorer.Service
	scorer   *complexity.Scorer
	metrics  *observability.Metrics
	augment  bool
	validate *validator.Validate
	logger   *slog.Logger
}

// APIOption configures an API.
type APIOption func(*API)

// WithScorer enables the complexity endpoint.
func WithScorer(s *complexity.Scorer) APIOption {
	return func(a *API) { a.scorer = s }
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *observability.Metrics) APIOption {
	return func(a *API) { a.metrics = m }
}

// WithAugmentDefault sets augmentation for requests that do not choose.
func WithAugmentDefault(on bool) APIOption {
	return func(a *API) { a.augment = on }
}

// WithLogger sets the API logger.
func WithLogger(l *slog.Logger) APIOption {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPI creates the API around an explorer service.
func NewAPI(svc *explorer.Service, opts ...APIOption) *API {
	a := &API{
		explorer: svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes registers the API endpoints on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/graph", a.handleGraph)
	mux.HandleFunc("POST /api/v1/connect", a.handleConnect)
	if a.scorer != nil {
		mux.HandleFunc("POST /api/v1/complexity", a.handleComplexity)
	}
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
}

// Handler returns the API as a standalone handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Routes(mux)
	return mux
}

func (a *API) handleGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.explore(w, r, explorer.Request{
		Roots:            []string{req.Word},
		Depth:            depthOrDefault(req.Depth),
		IncludeStopwords: req.IncludeStopwords,
		IncludePaths:     req.IncludePaths,
	})
}

func (a *API) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.explore(w, r, explorer.Request{
		Roots:            []string{req.Source, req.Target},
		Depth:            depthOrDefault(req.Depth),
		IncludeStopwords: req.IncludeStopwords,
		IncludePaths:     req.IncludePaths,
	})
}

func (a *API) explore(w http.ResponseWriter, r *http.Request, req explorer.Request) {
	resp, err := a.explorer.Explore(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, graph.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, graph.ErrDecode):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "no data"})
	case errors.Is(err, graph.ErrUnsupported):
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
	default:
		a.logger.Error("explore failed", "roots", req.Roots, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func (a *API) handleComplexity(w http.ResponseWriter, r *http.Request) {
	var req ComplexityRequest
	if !a.decode(w, r, &req) {
		return
	}
	augment := a.augment
	if req.Augment != nil {
		augment = *req.Augment
	}
	if augment && !a.scorer.CanAugment() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "augmentation is not configured"})
		return
	}

	res, err := a.scorer.Score(r.Context(), req.Text, augment)
	if err != nil {
		a.logger.Error("complexity scoring failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "frequency table unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return false
	}
	return true
}

func depthOrDefault(d int) int {
	if d == 0 {
		return DefaultDepth
	}
	return d
}
