// Package complexity scores text against a word frequency table.
package complexity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FrequencyTable maps lowercase tokens to complexity scores. It is read-only
// once built.
type FrequencyTable struct {
	scores map[string]float64
	// Duplicates counts rows ignored because their word was already present.
	Duplicates int
}

// Lookup returns the score of token by exact match.
func (t *FrequencyTable) Lookup(token string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	s, ok := t.scores[token]
	return s, ok
}

// Len returns the number of distinct words.
func (t *FrequencyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.scores)
}

// ReadFrequencyTable parses CSV with a header row containing "word" and
// "frequency" columns; other columns are ignored. When a word repeats, the
// first row wins and the repeat is counted in Duplicates.
func ReadFrequencyTable(r io.Reader) (*FrequencyTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("frequency table: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("frequency table header: %w", err)
	}
	wordCol, freqCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "word":
			wordCol = i
		case "frequency":
			freqCol = i
		}
	}
	if wordCol < 0 || freqCol < 0 {
		return nil, fmt.Errorf("frequency table: header needs word and frequency columns, got %v", header)
	}

	t := &FrequencyTable{scores: make(map[string]float64)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frequency table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if wordCol >= len(rec) || freqCol >= len(rec) {
			return nil, fmt.Errorf("frequency table line %d: expected at least %d fields", line, max(wordCol, freqCol)+1)
		}
		word := strings.ToLower(strings.TrimSpace(rec[wordCol]))
		if word == "" {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[freqCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("frequency table line %d: invalid frequency %q", line, rec[freqCol])
		}
		if _, dup := t.scores[word]; dup {
			t.Duplicates++
			continue
		}
		t.scores[word] = score
	}
	return t, nil
}

// LoadFrequencyTable reads a frequency table file.
func LoadFrequencyTable(path string) (*FrequencyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frequency table: %w", err)
	}
	defer f.Close()
	return ReadFrequencyTable(f)
}
