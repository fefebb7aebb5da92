package main

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
)

func randomBytes(rng *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(rng.UintN(256))
	}
	return out
}

// randomPhaseMask draws exp(i*0.1*pi*u) for uniform u in [0,1).
func randomPhaseMask(rng *rand.Rand, w, h int) []complex128 {
	out := make([]complex128, w*h)
	for i := range out {
		out[i] = cmplx.Exp(complex(0, 0.1*math.Pi*rng.Float64()))
	}
	return out
}

// lutRamp maps phase in [-pi, pi] linearly onto [0, max] with n entries.
func lutRamp(n int, max float64) []float64 {
	if n < 2 {
		return []float64{0}
	}
	out := make([]float64, n)
	for i := range out {
		phase := -math.Pi + 2*math.Pi*float64(i)/float64(n-1)
		out[i] = (phase + math.Pi) / (2 * math.Pi) * max
	}
	return out
}
