// Package lexicon cleans dictionary definitions and free text into tokens.
package lexicon

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	numberedSense = regexp.MustCompile(`\n\s{0,3}[0-9]{1,3}\s{0,3}\n`)
	parenNumber   = regexp.MustCompile(`\(\d{1,3}\)`)
	citation      = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenthetical = regexp.MustCompile(`\([^()]*\)`)
	letterSense   = regexp.MustCompile(`\s+[a-z]\s+:+`)
	leadingSense  = regexp.MustCompile(`(^|\s)[0-9]{1,3}\s*:+`)
	posTag        = regexp.MustCompile(`(?i)\b(?:n|v|vt|vi|adj|adv|prep|pron|conj|interj|pl)\.`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Clean strips sense numbering, part-of-speech abbreviations, parenthetical
// notes and citation markers from a definition or free text. The result is a
// single line of space separated words; empty input yields "".
func Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	cleaned := numberedSense.ReplaceAllString(text, " ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = parenNumber.ReplaceAllString(cleaned, " ")
	cleaned = citation.ReplaceAllString(cleaned, " ")
	// Nested notes collapse from the inside out.
	for parenthetical.MatchString(cleaned) {
		cleaned = parenthetical.ReplaceAllString(cleaned, " ")
	}
	cleaned = letterSense.ReplaceAllString(cleaned, " ")
	cleaned = leadingSense.ReplaceAllString(cleaned, " ")
	cleaned = posTag.ReplaceAllString(cleaned, " ")
	cleaned = strings.NewReplacer(":", " ", "(", " ", ")", " ", "[", " ", "]", " ").Replace(cleaned)
	return strings.TrimSpace(spaces.ReplaceAllString(cleaned, " "))
}

// Tokens cleans text and splits it into lowercase words with surrounding
// punctuation trimmed. Periods inside a word are dropped, so abbreviations
// collapse to one word ("U.S." -> "us", "e.g." -> "eg"); decimals such as
// "3.5" keep theirs. Order and duplicates are preserved.
func Tokens(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	fields := strings.FieldsFunc(cleaned, isSeparator)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(strings.TrimFunc(f, isPunct))
		if strings.Contains(tok, ".") && !strings.ContainsFunc(tok, unicode.IsDigit) {
			tok = strings.ReplaceAll(tok, ".", "")
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '—' || r == '–' || r == '/'
}

func isPunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

// Normalizer turns text into token sets, counters and scoring sequences
// using a fixed stopword set.
type Normalizer struct {
	stopwords Stopwords
}

// NewNormalizer returns a Normalizer bound to the given stopword set. A nil
// set disables stopword removal.
func NewNormalizer(stopwords Stopwords) *Normalizer {
	return &Normalizer{stopwords: stopwords}
}

// Stopwords returns the set the normalizer filters with.
func (n *Normalizer) Stopwords() Stopwords {
	return n.stopwords
}

// TokenSet returns the distinct words of text.
func (n *Normalizer) TokenSet(text string, removeStopwords bool) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range n.filter(Tokens(text), removeStopwords) {
		set[tok] = struct{}{}
	}
	return set
}

// Counter returns how many times each word occurs in text.
func (n *Normalizer) Counter(text string, removeStopwords bool) map[string]int {
	counts := make(map[string]int)
	for _, tok := range n.filter(Tokens(text), removeStopwords) {
		counts[tok]++
	}
	return counts
}

// ScoringTokens returns the words of text in order, duplicates kept and
// stopwords removed.
func (n *Normalizer) ScoringTokens(text string) []string {
	return n.filter(Tokens(text), true)
}

func (n *Normalizer) filter(tokens []string, removeStopwords bool) []string {
	if !removeStopwords || len(n.stopwords) == 0 {
		return tokens
	}
	kept := tokens[:0:0]
	for _, tok := range tokens {
		if !n.stopwords.Contains(tok) {
			kept = append(kept, tok)
		}
	}
	return kept
}
