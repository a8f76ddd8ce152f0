// Package graph models concept-graph traversal: queries, decoded paths,
// weighted relations and the node/edge view handed to renderers.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Mode distinguishes single-root expansion from two-root connection queries.
type Mode string

const (
	ModeOneRoot Mode = "one_root"
	ModeTwoRoot Mode = "two_root"
)

// MaxWordLength bounds the rune length of a root word.
const MaxWordLength = 64

// Query describes a bounded-depth traversal from one root or between two.
type Query struct {
	Roots []string `json:"roots" validate:"min=1,max=2,unique,dive,word"`
	Depth int      `json:"depth" validate:"min=1"`
}

// NewQuery returns a Query with normalized root words.
func NewQuery(depth int, roots ...string) Query {
	q := Query{Roots: make([]string, len(roots)), Depth: depth}
	for i, r := range roots {
		q.Roots[i] = NormalizeWord(r)
	}
	return q
}

// Mode reports whether q starts from one root or connects two.
func (q Query) Mode() Mode {
	if len(q.Roots) == 2 {
		return ModeTwoRoot
	}
	return ModeOneRoot
}

// Root returns the first root word.
func (q Query) Root() string {
	if len(q.Roots) == 0 {
		return ""
	}
	return q.Roots[0]
}

// Target returns the second root word in two-root mode.
func (q Query) Target() string {
	if len(q.Roots) < 2 {
		return ""
	}
	return q.Roots[1]
}

// Validate checks root words and depth. maxDepth <= 0 disables the upper bound.
func (q Query) Validate(maxDepth int) error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidQuery, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if maxDepth > 0 && q.Depth > maxDepth {
		return fmt.Errorf("%w: depth %d exceeds maximum %d", ErrInvalidQuery, q.Depth, maxDepth)
	}
	return nil
}

// NormalizeWord trims surrounding space and lowercases w.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// IsWord reports whether w is safe to use as a root word: letters first, then
// letters, marks, digits or a single internal apostrophe/hyphen.
func IsWord(w string) bool {
	if w == "" || utf8.RuneCountInString(w) > MaxWordLength {
		return false
	}
	prevJoiner := false
	for i, r := range w {
		switch {
		case unicode.IsLetter(r):
			prevJoiner = false
		case i > 0 && (unicode.IsMark(r) || unicode.IsDigit(r)):
			prevJoiner = false
		case i > 0 && (r == '\'' || r == '-') && !prevJoiner:
			prevJoiner = true
		default:
			return false
		}
	}
	return !prevJoiner
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("word", func(fl validator.FieldLevel) bool {
		return IsWord(fl.Field().String())
	})
	return v
}
