package vsm

import (
	"math"
	"testing"
)

func TestDot(t *testing.T) {
	a := Vector{Indices: []int{0, 2, 5}, Weights: []float64{1, 2, 3}}
	b := Vector{Indices: []int{2, 3, 5}, Weights: []float64{4, 1, 2}}
	if got := Dot(a, b); got != 14 {
		t.Errorf("Dot = %v, want 14", got)
	}
	if got := Dot(a, Vector{}); got != 0 {
		t.Errorf("Dot with empty = %v, want 0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := Vector{Indices: []int{0, 2}, Weights: []float64{1, 1}}
	b := Vector{Indices: []int{1, 2}, Weights: []float64{1, 1}}
	if got := CosineSimilarity(a, b); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("cosine = %v, want 0.5", got)
	}
	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-12 {
		t.Errorf("self cosine = %v, want 1", got)
	}
	if got := CosineSimilarity(a, Vector{}); got != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", got)
	}
	zero := Vector{Indices: []int{1}, Weights: []float64{0}}
	if got := CosineSimilarity(zero, zero); got != 0 {
		t.Errorf("cosine of explicit zeros = %v, want 0", got)
	}
}

func TestVector_NormalizeAndIsZero(t *testing.T) {
	v := Vector{Indices: []int{0, 1}, Weights: []float64{3, 4}}
	v.normalize()
	if math.Abs(v.Norm()-1) > 1e-12 {
		t.Errorf("norm after normalize = %v, want 1", v.Norm())
	}
	if v.IsZero() {
		t.Error("normalized vector should not be zero")
	}
	var empty Vector
	empty.normalize()
	if !empty.IsZero() || empty.Len() != 0 {
		t.Error("empty vector should stay zero")
	}
}
