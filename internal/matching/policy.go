package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JaimeStill/formwise/internal/forms"
)

// DefaultKeyword is the keyword matched by the keyword policy.
const DefaultKeyword = "application"

// Policy names accepted by NewPolicy.
const (
	PolicyKeyword = "keyword"
	PolicyOverlap = "overlap"
)

// Keyword scores 1 when the keyword occurs, case-insensitively, in the
// template name or description, and 0 otherwise. The input is not consulted.
type Keyword struct {
	Keyword string
}

func (k Keyword) Name() string { return PolicyKeyword }

func (k Keyword) Score(in Input, t *forms.Template) float64 {
	kw := strings.ToLower(k.Keyword)
	if kw == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(t.Name), kw) ||
		strings.Contains(strings.ToLower(t.Description), kw) {
		return 1
	}
	return 0
}

// Overlap scores the fraction of a template's vocabulary (name, description,
// and field labels) that also appears in the input text or extracted values.
// Tokens are lowercased letter/digit runs of at least MinTokenLength runes.
type Overlap struct {
	MinTokenLength int
}

// DefaultMinTokenLength ignores short tokens such as articles and prepositions.
const DefaultMinTokenLength = 3

func (o Overlap) Name() string { return PolicyOverlap }

func (o Overlap) Score(in Input, t *forms.Template) float64 {
	minLen := o.MinTokenLength
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}

	vocab := make(map[string]struct{})
	addTokens(vocab, t.Name, minLen)
	addTokens(vocab, t.Description, minLen)
	for _, f := range t.Fields {
		addTokens(vocab, f.Label, minLen)
	}
	if len(vocab) == 0 {
		return 0
	}

	evidence := make(map[string]struct{})
	addTokens(evidence, in.Text, minLen)
	for _, p := range in.Fields.Pairs() {
		addTokens(evidence, p.Value, minLen)
	}

	shared := 0
	for tok := range vocab {
		if _, ok := evidence[tok]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(vocab))
}

func addTokens(set map[string]struct{}, s string, minLen int) {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minLen {
			set[w] = struct{}{}
		}
	}
}
