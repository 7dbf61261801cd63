package cache

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// normalize folds full-width forms, lower-cases and drops all whitespace.
func normalize(s string) []rune {
	s = strings.ToLower(width.Fold.String(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}

// Similarity returns LCS(a, b) / max(len(a), len(b)) over normalized text.
// Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	ra, rb := normalize(a), normalize(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if string(ra) == string(rb) {
		return 1
	}

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return float64(lcsLength(ra, rb)) / float64(longest)
}

// lcsLength computes the longest common subsequence length with two rows.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
