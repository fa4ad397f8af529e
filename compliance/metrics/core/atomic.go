package core

import "go.uber.org/atomic"

// atomicInt64 and atomicFloat64 are thin aliases over go.uber.org/atomic's
// typed atomics, used throughout this package instead of raw
// sync/atomic + unsafe casts so call sites read as plain field access.
type atomicInt64 = atomic.Int64
type atomicFloat64 = atomic.Float64
