// Package vector holds the embedding vector type and the similarity math
// used by the duplicate filter.
package vector

import "math"

// Vector is an embedding. Vectors handed out by this package are either
// unit length or the zero vector.
type Vector []float32

// Normalize returns a unit-length copy of v. A vector with zero (or
// non-finite) norm becomes the zero vector of the same dimension; it is
// never divided by zero.
func Normalize(v []float32) Vector {
	out := make(Vector, len(v))
	n := norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// FromFloat64 converts and normalizes a float64 embedding.
func FromFloat64(v []float64) Vector {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return Normalize(f)
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	return norm(v)
}

// IsZero reports whether every component of v is zero. An empty vector is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dim returns the dimension of v.
func (v Vector) Dim() int { return len(v) }

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// unitTolerance covers the float32 rounding left by Normalize. A dot product
// within it of 1 is the same direction.
const unitTolerance = 1e-6

// Cosine returns the cosine similarity of two unit vectors, i.e. their dot
// product clamped to [-1, 1]. A dot product within unitTolerance of 1 is
// reported as exactly 1. It is 0 when either vector is zero or the
// dimensions differ.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	switch {
	case dot >= 1-unitTolerance:
		return 1
	case dot < -1:
		return -1
	}
	return dot
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
