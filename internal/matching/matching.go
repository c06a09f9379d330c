// Package matching ranks published form templates against the text and
// fields extracted from a document.
package matching

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/formwise/internal/forms"
	"github.com/JaimeStill/formwise/pkg/fieldmap"
)

// DefaultLimit is the number of suggestions returned when no positive limit is given.
const DefaultLimit = 3

// Input is the evidence a template is scored against.
type Input struct {
	Text   string
	Fields fieldmap.Map
}

// Suggestion is a ranked candidate template.
type Suggestion struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
}

// Policy scores one template against the input. Scores are in [0, 1]; a
// zero score excludes the template. Implementations must be deterministic.
type Policy interface {
	Name() string
	Score(in Input, t *forms.Template) float64
}

// Matcher applies a Policy to a template catalog.
type Matcher struct {
	policy Policy
}

// New creates a Matcher for policy. A nil policy uses the default keyword policy.
func New(policy Policy) *Matcher {
	if policy == nil {
		policy = Keyword{Keyword: DefaultKeyword}
	}
	return &Matcher{policy: policy}
}

// Policy returns the scoring policy in use.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Match scores every published template in catalog, drops zero scores, and
// returns at most limit suggestions ordered by descending confidence with
// ties broken by ascending template id. A non-positive limit uses
// DefaultLimit. An empty result is valid.
func (m *Matcher) Match(in Input, catalog []forms.Template, limit int) []Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}

	suggestions := make([]Suggestion, 0, min(limit, len(catalog)))
	for i := range catalog {
		t := &catalog[i]
		if !t.Published() {
			continue
		}

		score := m.policy.Score(in, t)
		if score <= 0 {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			ID:         t.ID,
			Name:       t.Name,
			Confidence: score,
		})
	}

	slices.SortFunc(suggestions, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
