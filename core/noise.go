package core

import (
	"math"
	"strconv"
	"strings"
)

// NoiseOf reduces a seed string to a stable value in [0,1). It is a 32-bit
// rolling polynomial hash with wrapping overflow, so the same seed yields
// the same value on every platform regardless of word size or locale.
func NoiseOf(seed string) float64 {
	var hash int32
	for i := 0; i < len(seed); i++ {
		hash = (hash << 5) - hash + int32(seed[i])
	}
	n := hash % 10000
	if n < 0 {
		n = -n
	}
	return float64(n) / 10000
}

// CanvasHashOf derives a 64 character hexadecimal canvas signature from the
// seed's noise value. The noise is scaled into the uint64 range, rendered as
// hex and repeated until 64 characters are filled.
func CanvasHashOf(seed string) string {
	noise := NoiseOf(seed)
	base := strconv.FormatUint(uint64(noise*float64(math.MaxUint64)), 16)
	if base == "" {
		base = "0"
	}
	hash := strings.Repeat(base, 64/len(base)+1)
	return hash[:64]
}
