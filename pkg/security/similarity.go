package security

import "strings"

// LevenshteinDistance returns the number of single-rune insertions,
// deletions and substitutions needed to turn a into b.
func LevenshteinDistance(a, b string) int {
	source := []rune(a)
	target := []rune(b)

	if len(source) == 0 {
		return len(target)
	}
	if len(target) == 0 {
		return len(source)
	}

	// Two rows are enough; row i only depends on row i-1.
	prev := make([]int, len(target)+1)
	curr := make([]int, len(target)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(source); i++ {
		curr[0] = i
		for j := 1; j <= len(target); j++ {
			cost := 1
			if source[i-1] == target[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(target)]
}

// Similarity returns 1 - distance/maxLen over the runes of a and b.
// Identical inputs, including two empty strings, score 1.0.
func Similarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(LevenshteinDistance(a, b))/float64(maxLen)
}

// SimilarityThreshold is the similarity above which two passwords are
// considered too close.
const SimilarityThreshold = 0.70

// AreSimilarPasswords compares two passwords case-insensitively. An empty
// password is never similar to anything.
func AreSimilarPasswords(oldPassword, newPassword string) bool {
	if oldPassword == "" || newPassword == "" {
		return false
	}
	return Similarity(strings.ToLower(oldPassword), strings.ToLower(newPassword)) > SimilarityThreshold
}
