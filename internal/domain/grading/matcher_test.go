package grading_test

import (
	"testing"

	"github.com/phrazzld/scry-drill/internal/domain/grading"
	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		typed     string
		canonical string
		want      grading.Match
	}{
		{"identical", "cat", "cat", grading.MatchExact},
		{"case and whitespace ignored", "  Cat ", "cat", grading.MatchExact},
		{"yo folds to ye", "ёлка", "елка", grading.MatchExact},
		{"uppercase yo folds to ye", "ЁЛКА", "ёлка", grading.MatchExact},
		{"matches one alternative", "kitty", "cat, kitty", grading.MatchExact},
		{"typed alternatives contain the answer", "cat, kitty", "kitty", grading.MatchExact},
		{"guessing several words is partial", "dog, bird, fish, cat", "cat", grading.MatchPartial},
		{"three guesses are partial", "dog, cat, fish", "cat", grading.MatchPartial},
		{"as many attempts as alternatives", "кот, кошка, киса", "кот, кошка, киса", grading.MatchExact},
		{"guessed typo is partial", "dog, bird, fsh, aple", "apple", grading.MatchPartial},
		{"cyrillic alternative", "пес", "собака, пёс", grading.MatchExact},
		{"one typo in a short word is partial", "ct", "cat", grading.MatchPartial},
		{"one typo in a longer word is exact", "aple", "apple", grading.MatchExact},
		{"typed is a substring", "hous", "house", grading.MatchPartial},
		{"answer is a substring of typed", "the house", "house", grading.MatchPartial},
		{"transposition is partial", "helol", "hello", grading.MatchPartial},
		{"unrelated word", "dog", "cat", grading.MatchWrong},
		{"distant cyrillic word", "кот", "кошка", grading.MatchWrong},
		{"empty answer", "", "cat", grading.MatchWrong},
		{"blank answer", "   ", "cat", grading.MatchWrong},
		{"only commas", " , ,", "cat", grading.MatchWrong},
		{"canonical without alternatives", "cat", ", ,", grading.MatchWrong},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, grading.Compare(tc.typed, tc.canonical))
		})
	}
}

func TestMatcherCustomThresholds(t *testing.T) {
	t.Parallel()

	strict := grading.NewMatcher(grading.Thresholds{Exact: 0.9, Partial: 0.5})
	assert.Equal(t, grading.MatchPartial, strict.Compare("aple", "apple"))
	assert.Equal(t, grading.MatchWrong, strict.Compare("dog", "cat"))

	fallback := grading.NewMatcher(grading.Thresholds{Exact: 7, Partial: -1})
	assert.Equal(t, grading.MatchExact, fallback.Compare("aple", "apple"))
	assert.Equal(t, grading.MatchPartial, fallback.Compare("ct", "cat"))
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, grading.Similarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, grading.Similarity("дом", "дом"), 1e-9)
	assert.InDelta(t, 2.0/3.0, grading.Similarity("abc", "abd"), 1e-9)
	// counted in runes, not bytes
	assert.InDelta(t, 0.5, grading.Similarity("ёж", "еж"), 1e-9)
	assert.InDelta(t, 0.0, grading.Similarity("abc", ""), 1e-9)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "елка", grading.Normalize(" Ёлка\t"))
	assert.Equal(t, "straße", grading.Normalize("STRAßE"))
	assert.Equal(t, "", grading.Normalize("   "))
}

func TestMatchString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exact", grading.MatchExact.String())
	assert.Equal(t, "partial", grading.MatchPartial.String())
	assert.Equal(t, "wrong", grading.MatchWrong.String())
}
