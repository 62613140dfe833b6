package utils

import "math"

// L2Norm returns the L2 norm of x, accumulated in float64.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// NormalizeL2 normalizes the slice in place to unit L2 norm and returns the
// norm it had before scaling. If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) float64 {
	norm := L2Norm(x)
	if norm == 0 {
		return 0
	}
	scale := 1.0 / norm
	for i := range x {
		x[i] = float32(float64(x[i]) * scale)
	}
	return norm
}
