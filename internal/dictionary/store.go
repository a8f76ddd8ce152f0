// Package dictionary stores word entries (definition, part of speech,
// pronunciation, syllables) in SQLite and exports definition edges for
// bulk-loading the graph store.
package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/efebarandurmaz/conceptgraph/internal/lexicon"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a word absent from the store. It is a lookup miss,
// not a failure.
var ErrNotFound = errors.New("word not found")

// Word is one dictionary entry keyed by its normalized value.
type Word struct {
	Value         string `json:"value"`
	PartOfSpeech  string `json:"part_of_speech,omitempty"`
	Pronunciation string `json:"pronunciation,omitempty"`
	Syllables     string `json:"syllables,omitempty"`
	Definition    string `json:"definition,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS word (
	value          TEXT PRIMARY KEY,
	part_of_speech TEXT NOT NULL DEFAULT '',
	pronunciation  TEXT NOT NULL DEFAULT '',
	syllables      TEXT NOT NULL DEFAULT '',
	definition     TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore is a Word store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	lemma  lexicon.Lemmatizer
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLemmatizer sets the lemmatizer used by Lookup's fallback.
func WithLemmatizer(l lexicon.Lemmatizer) Option {
	return func(s *SQLiteStore) { s.lemma = l }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("dictionary path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dictionary schema: %w", err)
	}

	s := &SQLiteStore{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the entry for value exactly, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, value string) (*Word, error) {
	var w Word
	err := s.db.QueryRowContext(ctx,
		`SELECT value, part_of_speech, pronunciation, syllables, definition FROM word WHERE value = ?`,
		normalize(value),
	).Scan(&w.Value, &w.PartOfSpeech, &w.Pronunciation, &w.Syllables, &w.Definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, value)
	}
	if err != nil {
		return nil, fmt.Errorf("get word %q: %w", value, err)
	}
	return &w, nil
}

// Lookup returns the entry for value. On a miss it retries with the word's
// lemma when the word is that lemma plus a suffix ("running" -> "run"). The
// fallback needs a lemmatizer set with WithLemmatizer.
func (s *SQLiteStore) Lookup(ctx context.Context, value string) (*Word, error) {
	w, err := s.Get(ctx, value)
	if err == nil || !errors.Is(err, ErrNotFound) || s.lemma == nil {
		return w, err
	}

	word := normalize(value)
	lemma := s.lemma.Lemma(word)
	if lemma == "" || lemma == word || !strings.HasPrefix(word, lemma) {
		return nil, err
	}
	w, lerr := s.Get(ctx, lemma)
	if lerr != nil {
		return nil, err
	}
	s.logger.Debug("dictionary lemma fallback", "word", word, "lemma", lemma)
	return w, nil
}

// Upsert inserts w or replaces the stored entry with the same value.
func (s *SQLiteStore) Upsert(ctx context.Context, w Word) error {
	w.Value = normalize(w.Value)
	if w.Value == "" {
		return fmt.Errorf("upsert word: empty value")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO word (value, part_of_speech, pronunciation, syllables, definition)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(value) DO UPDATE SET
			part_of_speech = excluded.part_of_speech,
			pronunciation = excluded.pronunciation,
			syllables = excluded.syllables,
			definition = excluded.definition`,
		w.Value, w.PartOfSpeech, w.Pronunciation, w.Syllables, w.Definition,
	)
	if err != nil {
		return fmt.Errorf("upsert word %q: %w", w.Value, err)
	}
	return nil
}

// Count returns the number of stored words.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM word`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

// Each calls fn for every stored word in value order, stopping at the first
// error. fn must not call back into the store when it is in-memory.
func (s *SQLiteStore) Each(ctx context.Context, fn func(Word) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, part_of_speech, pronunciation, syllables, definition FROM word ORDER BY value`)
	if err != nil {
		return fmt.Errorf("list words: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.Value, &w.PartOfSpeech, &w.Pronunciation, &w.Syllables, &w.Definition); err != nil {
			return fmt.Errorf("scan word: %w", err)
		}
		if err := fn(w); err != nil {
			return err
		}
	}
	return rows.Err()
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
