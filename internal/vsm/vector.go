package vsm

import "math"

// Vector is a sparse term-weight vector. Indices are strictly ascending vocabulary
// dimensions; Weights[i] is the weight of dimension Indices[i].
type Vector struct {
	Indices []int
	Weights []float64
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int {
	return len(v.Indices)
}

// IsZero reports whether the vector has no non-zero weight.
func (v Vector) IsZero() bool {
	for _, w := range v.Weights {
		if w != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two sparse vectors using a merge-join over indices.
func Dot(a, b Vector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|), clamped to [0, 1].
// It is 0 when either vector is the zero vector.
func CosineSimilarity(a, b Vector) float64 {
	return cosine(a, b, a.Norm(), b.Norm())
}

func cosine(a, b Vector, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, Dot(a, b)/(normA*normB)))
}

// normalize scales weights in place to unit L2 norm. A zero vector is left unchanged.
func (v Vector) normalize() {
	norm := v.Norm()
	if norm == 0 {
		return
	}
	for i := range v.Weights {
		v.Weights[i] /= norm
	}
}
