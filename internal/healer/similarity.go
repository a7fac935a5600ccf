package healer

import "math"

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. When either vector has zero norm the similarity is defined as 0.
// Vectors of unequal length are compared over their common prefix; the
// healer validates dimensions before calling this.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Levenshtein returns the edit distance between s1 and s2, counting
// insertions, deletions and substitutions at unit cost. Operates on bytes;
// selectors and structural labels are ASCII in practice.
func Levenshtein(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// StringSimilarity maps edit distance into [0, 1]:
// 1 - levenshtein(s1, s2)/max(len(s1), len(s2)). Two empty strings are
// defined as identical (1.0).
func StringSimilarity(s1, s2 string) float64 {
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(s1, s2))/float64(maxLen)
}
