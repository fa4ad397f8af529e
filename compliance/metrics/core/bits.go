package core

import "math"

func asUint64(f float64) uint64 { return math.Float64bits(f) }
func asFloat64(u uint64) float64 { return math.Float64frombits(u) }
