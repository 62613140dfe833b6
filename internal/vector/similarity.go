package vector

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineDistance returns 1 - a·b for unit vectors, clamped to [0, 2] to absorb
// rounding past ±1. 0 means same direction, 2 means opposite.
func CosineDistance(a, b []float32) float32 {
	d := 1 - InnerProduct(a, b)
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return float32(d)
}
