package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	melFloor = 1e-10 // power floor before taking the log
	topDB    = 80.0  // dynamic range kept below the loudest mel band
)

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds area-normalised triangular filters spanning 0 Hz to Nyquist.
func melFilterbank(numBands, bins int, sampleRate float64) [][]float64 {
	maxMel := hzToMel(sampleRate / 2)
	edges := make([]float64, numBands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(numBands+1))
	}

	binHz := sampleRate / float64(2*(bins-1))
	bank := make([][]float64, numBands)
	for m := 0; m < numBands; m++ {
		lo, center, hi := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (hi - lo)

		filter := make([]float64, bins)
		for k := range filter {
			f := float64(k) * binHz
			switch {
			case f > lo && f <= center:
				filter[k] = norm * (f - lo) / (center - lo)
			case f > center && f < hi:
				filter[k] = norm * (hi - f) / (hi - center)
			}
		}
		bank[m] = filter
	}
	return bank
}

// dctII computes the first n coefficients of the orthonormal DCT-II of x.
func dctII(x []float64, n int) []float64 {
	size := float64(len(x))
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi/size*(float64(i)+0.5)*float64(k))
		}
		scale := math.Sqrt(2 / size)
		if k == 0 {
			scale = math.Sqrt(1 / size)
		}
		out[k] = sum * scale
	}
	return out
}

// mfccStats returns the mean and population standard deviation over the
// full MFCC matrix (all coefficients of all frames).
func mfccStats(spec *spectrogram, bank [][]float64, numCoeffs int) (mean, std float64) {
	logMel := make([][]float64, len(spec.frames))
	peak := math.Inf(-1)
	for t := range spec.frames {
		power := spec.power(t)
		bands := make([]float64, len(bank))
		for m, filter := range bank {
			bands[m] = 10 * math.Log10(math.Max(melFloor, floats.Dot(filter, power)))
		}
		peak = math.Max(peak, floats.Max(bands))
		logMel[t] = bands
	}

	coeffs := make([]float64, 0, len(logMel)*numCoeffs)
	floor := peak - topDB
	for _, bands := range logMel {
		for m, v := range bands {
			bands[m] = math.Max(v, floor)
		}
		coeffs = append(coeffs, dctII(bands, numCoeffs)...)
	}

	return stat.PopMeanStdDev(coeffs, nil)
}
