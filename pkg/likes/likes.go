// Package likes estimates per-song like counts around a catalog average.
package likes

import (
	"math"

	"github.com/igolaizola/songseed/pkg/seed"
)

const (
	Min = 0
	Max = 10
)

// Estimate returns a like count in [Min, Max] whose mean over many seeds is
// average. The fractional part of average is the probability of rounding up.
func Estimate(s uint64, average float64) int {
	switch {
	case average <= Min:
		return Min
	case average >= Max:
		return Max
	}
	floor := math.Floor(average)
	likes := int(floor)
	if seed.NewRng(s).Float64() < average-floor {
		likes++
	}
	return min(Max, max(Min, likes))
}
