package lexicon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Lemmatizer maps a word to its canonical base form.
type Lemmatizer interface {
	Lemma(token string) string
}

// LemmatizerFunc adapts a function to the Lemmatizer interface.
type LemmatizerFunc func(token string) string

// Lemma calls f(token).
func (f LemmatizerFunc) Lemma(token string) string { return f(token) }

// DictLemmatizer looks words up in a form-to-lemma dictionary. Words missing
// from the dictionary are returned unchanged, lowercased.
type DictLemmatizer struct {
	dict *golem.Lemmatizer
}

// Lemma returns the base form of token.
func (l *DictLemmatizer) Lemma(token string) string {
	word := strings.ToLower(strings.TrimSpace(token))
	if word == "" {
		return ""
	}
	return l.dict.Lemma(word)
}

var (
	englishOnce sync.Once
	english     *DictLemmatizer
	englishErr  error
)

// English returns the shared English lemmatizer. The dictionary is loaded on
// first use and never modified afterwards.
func English() (*DictLemmatizer, error) {
	englishOnce.Do(func() {
		dict, err := golem.New(en.New())
		if err != nil {
			englishErr = fmt.Errorf("load english lemma dictionary: %w", err)
			return
		}
		english = &DictLemmatizer{dict: dict}
	})
	return english, englishErr
}
