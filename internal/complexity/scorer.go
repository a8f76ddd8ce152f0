package complexity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"
	"github.com/efebarandurmaz/conceptgraph/internal/observability"
	"github.com/efebarandurmaz/conceptgraph/internal/summary"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency    = 4
	DefaultSummaryTimeout = 5 * time.Second
)

// Summarizer fetches a short text describing title.
type Summarizer interface {
	Summary(ctx context.Context, title string) (string, error)
}

// Result is the outcome of scoring one text. Score is nil exactly when no
// token resolved, in which case DivisionByZero is set.
type Result struct {
	Score          *float64 `json:"score"`
	DivisionByZero bool     `json:"division_by_zero"`
	// UnknownTokens lists tokens that resolved neither exactly nor by lemma,
	// in first-seen order with duplicates. Augmentation never changes it.
	UnknownTokens []string `json:"unknown_tokens"`
	Tokens        int      `json:"tokens"`
	Matched       int      `json:"matched"`
	// Augmented counts matches contributed by summary texts.
	Augmented int     `json:"augmented"`
	Total     float64 `json:"total"`
}

// Scorer computes complexity scores. It holds only read-only collaborators
// and is safe for concurrent use.
type Scorer struct {
	normalizer     *lexicon.Normalizer
	lemmatizer     lexicon.Lemmatizer
	summarizer     Summarizer
	tablePath      string
	concurrency    int
	summaryTimeout time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithSummarizer enables augmentation through s.
func WithSummarizer(s Summarizer) Option {
	return func(sc *Scorer) { sc.summarizer = s }
}

// WithTablePath sets the frequency table file loaded by Score.
func WithTablePath(path string) Option {
	return func(sc *Scorer) { sc.tablePath = path }
}

// WithConcurrency bounds concurrent summary fetches.
func WithConcurrency(n int) Option {
	return func(sc *Scorer) {
		if n > 0 {
			sc.concurrency = n
		}
	}
}

// WithSummaryTimeout bounds each summary fetch.
func WithSummaryTimeout(d time.Duration) Option {
	return func(sc *Scorer) {
		if d > 0 {
			sc.summaryTimeout = d
		}
	}
}

// WithMetrics records scoring outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(sc *Scorer) { sc.metrics = m }
}

// WithLogger sets the scorer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(sc *Scorer) { sc.logger = l }
}

// NewScorer creates a Scorer.
func NewScorer(normalizer *lexicon.Normalizer, lemmatizer lexicon.Lemmatizer, opts ...Option) *Scorer {
	s := &Scorer{
		normalizer:     normalizer,
		lemmatizer:     lemmatizer,
		concurrency:    DefaultConcurrency,
		summaryTimeout: DefaultSummaryTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanAugment reports whether a summarizer is configured.
func (s *Scorer) CanAugment() bool {
	return s.summarizer != nil
}

// Score loads the frequency table fresh from the configured path and scores
// text against it.
func (s *Scorer) Score(ctx context.Context, text string, augment bool) (*Result, error) {
	if s.tablePath == "" {
		s.metrics.RecordComplexity(observability.OutcomeError, 0)
		return nil, fmt.Errorf("no frequency table configured")
	}
	table, err := LoadFrequencyTable(s.tablePath)
	if err != nil {
		s.metrics.RecordComplexity(observability.OutcomeError, 0)
		return nil, err
	}
	if table.Duplicates > 0 {
		s.logger.Warn("frequency table has duplicate words", "path", s.tablePath, "ignored_rows", table.Duplicates)
	}
	return s.ScoreTable(ctx, table, text, augment), nil
}

// ScoreTable scores text against table. Each token resolves by exact match,
// else by its lemma when the lemma differs and is present; otherwise it is
// unknown. With augment set, the summary of every unknown token is scored the
// same way and its matches are added to the total. Summary failures fall back
// to the token's own text.
func (s *Scorer) ScoreTable(ctx context.Context, table *FrequencyTable, text string, augment bool) *Result {
	tokens := s.normalizer.ScoringTokens(text)

	ctx, span := observability.StartScoreSpan(ctx, len(tokens), augment)
	defer span.End()

	res := &Result{Tokens: len(tokens), UnknownTokens: []string{}}
	total, matched, unknown := s.tally(table, tokens)
	res.Total, res.Matched = total, matched
	res.UnknownTokens = append(res.UnknownTokens, unknown...)

	if augment && len(unknown) > 0 {
		if s.summarizer == nil {
			s.logger.Warn("augmentation requested without a summarizer")
		} else {
			extra, extraMatched := s.augment(ctx, table, unknown)
			res.Total += extra
			res.Matched += extraMatched
			res.Augmented = extraMatched
		}
	}

	if res.Matched == 0 {
		res.DivisionByZero = true
		s.metrics.RecordComplexity(observability.OutcomeDivisionByZero, len(res.UnknownTokens))
	} else {
		score := res.Total / float64(res.Matched)
		res.Score = &score
		s.metrics.RecordComplexity(observability.OutcomeOK, len(res.UnknownTokens))
	}
	observability.RecordScoreResult(span, res.Matched, len(res.UnknownTokens), res.DivisionByZero)
	return res
}

// tally resolves tokens in order.
func (s *Scorer) tally(table *FrequencyTable, tokens []string) (total float64, matched int, unknown []string) {
	for _, tok := range tokens {
		if score, ok := table.Lookup(tok); ok {
			total += score
			matched++
			continue
		}
		if s.lemmatizer != nil {
			if lemma := s.lemmatizer.Lemma(tok); lemma != tok {
				if score, ok := table.Lookup(lemma); ok {
					total += score
					matched++
					continue
				}
			}
		}
		unknown = append(unknown, tok)
	}
	return total, matched, unknown
}

// augment fetches a summary for every unknown token concurrently and scores
// each summary text. Results are folded in token order so the sum does not
// depend on completion order.
func (s *Scorer) augment(ctx context.Context, table *FrequencyTable, unknown []string) (float64, int) {
	type partial struct {
		total   float64
		matched int
	}
	parts := make([]partial, len(unknown))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tok := range unknown {
		g.Go(func() error {
			text := s.summaryOrToken(gctx, tok)
			total, matched, _ := s.tally(table, s.normalizer.ScoringTokens(text))
			parts[i] = partial{total: total, matched: matched}
			return nil
		})
	}
	_ = g.Wait()

	var total float64
	var matched int
	for _, p := range parts {
		total += p.total
		matched += p.matched
	}
	return total, matched
}

func (s *Scorer) summaryOrToken(ctx context.Context, token string) string {
	ctx, cancel := context.WithTimeout(ctx, s.summaryTimeout)
	defer cancel()

	text, err := s.summarizer.Summary(ctx, token)
	switch {
	case err == nil:
		s.metrics.RecordSummary(observability.OutcomeOK)
		return text
	case errors.Is(err, summary.ErrNoSummary):
		s.metrics.RecordSummary(observability.OutcomeMiss)
	default:
		s.metrics.RecordSummary(observability.OutcomeFallback)
		s.logger.Warn("summary fetch failed", "token", token, "error", err)
	}
	return token
}
