package isel

import "math"

func float64ToBits(v float64) uint64 { return math.Float64bits(v) }

func float32ToBits(v float32) uint32 { return math.Float32bits(v) }
