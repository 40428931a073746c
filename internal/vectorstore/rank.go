package vectorstore

import "math"

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// TopK returns the indexes of the k highest scores, best first. Ties keep
// their original order.
func TopK(scores []float64, k int) []int {
	idxs := argsortDesc(scores)
	if k < 0 || k > len(idxs) {
		k = len(idxs)
	}
	return idxs[:k]
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	// insertion sort keeps ties stable; bookmark sets are small
	for i := 1; i < len(idxs); i++ {
		for j := i; j > 0 && vals[idxs[j]] > vals[idxs[j-1]]; j-- {
			idxs[j], idxs[j-1] = idxs[j-1], idxs[j]
		}
	}
	return idxs
}
