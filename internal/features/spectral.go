package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// spectralCentroid is the mean over frames of the magnitude-weighted
// average frequency. Silent frames count as 0 Hz.
func spectralCentroid(spec *spectrogram) float64 {
	centroids := make([]float64, len(spec.frames))
	for t, mags := range spec.frames {
		var weighted, total float64
		for k, m := range mags {
			weighted += float64(k) * spec.binHz * m
			total += m
		}
		if total > 0 {
			centroids[t] = weighted / total
		}
	}
	return stat.Mean(centroids, nil)
}

// chromaMean folds spectral power into 12 pitch classes per frame,
// normalises each frame by its loudest class and averages everything.
func chromaMean(spec *spectrogram, minHz float64) float64 {
	classes := pitchClasses(len(spec.frames[0]), spec.binHz, minHz)

	values := make([]float64, 0, len(spec.frames)*12)
	for t := range spec.frames {
		var chroma [12]float64
		for k, p := range spec.power(t) {
			if c := classes[k]; c >= 0 {
				chroma[c] += p
			}
		}

		peak := 0.0
		for _, v := range chroma {
			peak = math.Max(peak, v)
		}
		for _, v := range chroma {
			if peak > tinyPower {
				v /= peak
			}
			values = append(values, v)
		}
	}
	return stat.Mean(values, nil)
}

// tinyPower is the level below which a frame is treated as silent.
const tinyPower = 1e-10

// pitchClasses maps each FFT bin to a pitch class (C=0 ... B=11),
// or -1 for bins below minHz.
func pitchClasses(bins int, binHz, minHz float64) []int {
	classes := make([]int, bins)
	for k := range classes {
		freq := float64(k) * binHz
		if freq < minHz {
			classes[k] = -1
			continue
		}
		midi := 69 + 12*math.Log2(freq/440)
		pc := int(math.Round(midi)) % 12
		if pc < 0 {
			pc += 12
		}
		classes[k] = pc
	}
	return classes
}
