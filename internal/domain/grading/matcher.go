package grading

import (
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Match classifies a typed answer against the canonical answer.
type Match int

// Match classifications.
const (
	MatchWrong Match = iota
	MatchPartial
	MatchExact
)

// String returns the lowercase name of the match.
func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPartial:
		return "partial"
	default:
		return "wrong"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Match) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Thresholds are the similarity cut-offs used when no exact or substring
// match exists. Similarity is 1 - distance/max(len).
type Thresholds struct {
	Exact   float64
	Partial float64
}

// DefaultThresholds tolerate a minor typo as exact (≥ 0.8) and a near miss as
// partial (≥ 0.6).
func DefaultThresholds() Thresholds {
	return Thresholds{Exact: 0.8, Partial: 0.6}
}

// Matcher compares typed answers to canonical answers. It is stateless and
// safe for concurrent use.
type Matcher struct {
	thresholds Thresholds
}

// NewMatcher creates a Matcher. Invalid thresholds fall back to the defaults.
func NewMatcher(t Thresholds) *Matcher {
	def := DefaultThresholds()
	if t.Exact <= 0 || t.Exact > 1 {
		t.Exact = def.Exact
	}
	if t.Partial <= 0 || t.Partial > t.Exact {
		t.Partial = min(def.Partial, t.Exact)
	}
	return &Matcher{thresholds: t}
}

var defaultMatcher = NewMatcher(DefaultThresholds())

// Compare classifies typed against canonical with the default thresholds.
func Compare(typed, canonical string) Match {
	return defaultMatcher.Compare(typed, canonical)
}

// MinAttempts is how many comma-separated attempts a typed answer may list
// before a hit stops counting as exact. A canonical answer with more
// alternatives raises the allowance to match.
const MinAttempts = 2

// Compare classifies typed against canonical.
//
// The canonical answer may list accepted alternatives separated by commas.
// A typed answer may list several attempts the same way; the best
// classification across all pairs wins. Checks run in order: exact equality,
// then substring containment in either direction (partial), then edit
// distance similarity. A blank answer is always wrong.
//
// An answer listing more attempts than max(MinAttempts, alternatives) is a
// list of guesses: its best result is capped at partial, so the learner has
// to confirm it.
func (m *Matcher) Compare(typed, canonical string) Match {
	attempts := splitAlternatives(typed)
	if len(attempts) == 0 {
		return MatchWrong
	}
	alternatives := splitAlternatives(canonical)
	if len(alternatives) == 0 {
		return MatchWrong
	}

	match := m.compare(attempts, alternatives)
	if match == MatchExact && len(attempts) > max(MinAttempts, len(alternatives)) {
		return MatchPartial
	}
	return match
}

func (m *Matcher) compare(attempts, alternatives []string) Match {
	for _, a := range attempts {
		for _, alt := range alternatives {
			if a == alt {
				return MatchExact
			}
		}
	}

	for _, a := range attempts {
		for _, alt := range alternatives {
			if strings.Contains(alt, a) || strings.Contains(a, alt) {
				return MatchPartial
			}
		}
	}

	best := 0.0
	for _, a := range attempts {
		for _, alt := range alternatives {
			best = max(best, Similarity(a, alt))
		}
	}

	switch {
	case best >= m.thresholds.Exact:
		return MatchExact
	case best >= m.thresholds.Partial:
		return MatchPartial
	default:
		return MatchWrong
	}
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	distance := levenshtein.Distance(a, b, nil)
	return 1 - float64(distance)/float64(longest)
}

// Normalize lowercases and trims s and folds "ё" into "е", since canonical
// answers use either spelling.
func Normalize(s string) string {
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}

func splitAlternatives(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
