package matching

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DescriptionSimilarity compares two free-text descriptions and returns 0..1.
// It takes the better of a whole-string edit ratio and a symmetric token
// score, so reordered or abbreviated words still count.
func DescriptionSimilarity(a, b string) float64 {
	na := normalizeText(a)
	nb := normalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	whole := ratio(na, nb)

	ta := strings.Fields(na)
	tb := strings.Fields(nb)
	tokens := (tokenCoverage(ta, tb) + tokenCoverage(tb, ta)) / 2

	if tokens > whole {
		return tokens
	}
	return whole
}

// normalizeText upper-cases, drops punctuation and collapses whitespace.
func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToUpper(r)
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenCoverage averages, over every token in from, its best ratio in to.
func tokenCoverage(from, to []string) float64 {
	if len(from) == 0 || len(to) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range from {
		best := 0.0
		for _, t := range to {
			if sim := ratio(f, t); sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(from))
}

func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptionsWithSub))/float64(maxLen)
}
