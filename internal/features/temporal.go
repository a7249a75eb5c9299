package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// zeroCrossingRate averages the per-frame fraction of sign changes.
func zeroCrossingRate(frames [][]float64) float64 {
	rates := make([]float64, len(frames))
	for t, f := range frames {
		crossings := 0
		for i := 1; i < len(f); i++ {
			if math.Signbit(f[i]) != math.Signbit(f[i-1]) {
				crossings++
			}
		}
		rates[t] = float64(crossings) / float64(len(f))
	}
	return stat.Mean(rates, nil)
}

// rmsEnergy averages the per-frame root mean square amplitude.
func rmsEnergy(frames [][]float64) float64 {
	levels := make([]float64, len(frames))
	for t, f := range frames {
		var sum float64
		for _, v := range f {
			sum += v * v
		}
		levels[t] = math.Sqrt(sum / float64(len(f)))
	}
	return stat.Mean(levels, nil)
}
