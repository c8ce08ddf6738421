package embeddings

import (
	"fmt"
	"math"
)

// DotProduct returns the dot product of two equally sized vectors
func DotProduct(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have same length: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}

	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Magnitude returns the Euclidean norm of v
func Magnitude(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result lies in [-1, 1], where 1 means identical direction.
func CosineSimilarity(a, b []float64) (float64, error) {
	dot, err := DotProduct(a, b)
	if err != nil {
		return 0, err
	}

	normA, normB := Magnitude(a), Magnitude(b)
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vector norm cannot be zero")
	}

	// clamp floating point drift
	return math.Max(-1, math.Min(1, dot/(normA*normB))), nil
}
