package vector

import "math"

// L2Distance returns the squared Euclidean distance between two vectors of
// equal length. Mismatched or empty inputs return +Inf so they never rank.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

// InnerProduct returns the inner product of two vectors (equals cosine
// similarity for normalized vectors).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// DistanceToScore converts a distance (lower = better) into a similarity
// score in (0,1] (higher = better). Distance 0 maps to exactly 1.0; negative
// distances from non-Euclidean metrics are clamped to 0 first, so the
// conversion stays monotonic and bounded.
func DistanceToScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1.0 / (1.0 + distance)
}
