package core

import (
	"fmt"
	"math"
)

// DefaultLatencyBuckets returns exponentially-spaced second buckets
// starting at 5ms, suitable for request/operation latency histograms.
func DefaultLatencyBuckets() []float64 {
	return Exponential(0.005, 2, 14)
}

// DefaultSizeBuckets returns byte-oriented buckets (1KB .. ~1GB).
func DefaultSizeBuckets() []float64 {
	return Exponential(1024, 4, 11)
}

// Exponential returns count buckets starting at start, each factor times
// the previous. start must be positive, factor must be greater than 1.
func Exponential(start, factor float64, count int) []float64 {
	if start <= 0 || !isFinitePositive(start) {
		panic(fmt.Sprintf("metrics: exponential buckets require start > 0, got %v", start))
	}
	if factor <= 1 || !isFinitePositive(factor) {
		panic(fmt.Sprintf("metrics: exponential buckets require factor > 1, got %v", factor))
	}
	buckets := make([]float64, count)
	v := start
	for i := 0; i < count; i++ {
		buckets[i] = v
		v *= factor
	}
	return buckets
}

// Linear returns count buckets starting at start, each width greater than
// the previous. width must be positive.
func Linear(start, width float64, count int) []float64 {
	if width <= 0 || !isFinitePositive(width) {
		panic(fmt.Sprintf("metrics: linear buckets require width > 0, got %v", width))
	}
	if !isFinite(start) {
		panic(fmt.Sprintf("metrics: linear buckets require a finite start, got %v", start))
	}
	buckets := make([]float64, count)
	for i := 0; i < count; i++ {
		buckets[i] = start + float64(i)*width
	}
	return buckets
}

func isFinite(v float64) bool         { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func isFinitePositive(v float64) bool { return isFinite(v) && v > 0 }
