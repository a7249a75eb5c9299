package features

import (
	"math"
	"sort"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/stat"
)

const (
	peakRadius         = 3    // frames either side a peak must dominate
	peakThreshold      = 0.5  // standard deviations above the mean flux
	minOnsetGap        = 0.1  // seconds between onsets
	minInterval        = 0.25 // seconds, 240 BPM
	maxInterval        = 2.0  // seconds, 30 BPM
	maxIntervalGroup   = 3
	maxGroupIterations = 50
	referenceBPM       = 120.0
)

// onsetEnvelope is the half-wave rectified log spectral flux per frame.
func onsetEnvelope(spec *spectrogram) []float64 {
	env := make([]float64, len(spec.frames))
	for t := 1; t < len(spec.frames); t++ {
		prev, cur := spec.frames[t-1], spec.frames[t]
		var flux float64
		for k := range cur {
			if d := math.Log1p(cur[k]) - math.Log1p(prev[k]); d > 0 {
				flux += d
			}
		}
		env[t] = flux
	}
	return env
}

// pickOnsets returns frame indices of local maxima in env that stand out
// from the envelope's mean.
func pickOnsets(env []float64, frameRate float64) []int {
	mean, std := stat.MeanStdDev(env, nil)
	threshold := mean + peakThreshold*std
	minGap := int(math.Ceil(minOnsetGap * frameRate))

	var onsets []int
	for t, v := range env {
		if v <= threshold || v <= 0 {
			continue
		}
		if !isLocalMax(env, t, peakRadius) {
			continue
		}
		if n := len(onsets); n > 0 && t-onsets[n-1] < minGap {
			continue
		}
		onsets = append(onsets, t)
	}
	return onsets
}

func isLocalMax(env []float64, t, radius int) bool {
	lo := max(0, t-radius)
	hi := min(len(env)-1, t+radius)
	for i := lo; i <= hi; i++ {
		if env[i] > env[t] || (env[i] == env[t] && i < t) {
			return false
		}
	}
	return true
}

// intervalObservation wraps an inter-onset interval for k-means.
type intervalObservation struct {
	seconds float64
	coords  clusters.Coordinates
}

func (o intervalObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o intervalObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// estimateTempo returns the dominant beat rate in BPM, or 0 when the
// signal has no rhythmic onsets.
func estimateTempo(spec *spectrogram, cfg Config) float64 {
	env := onsetEnvelope(spec)
	frameRate := spec.frameRate()

	if period, ok := periodFromIntervals(pickOnsets(env, frameRate), frameRate); ok {
		return foldTempo(60/period, cfg.MinTempo, cfg.MaxTempo)
	}
	if bpm := autocorrelationTempo(env, frameRate, cfg.MinTempo, cfg.MaxTempo); bpm > 0 {
		return bpm
	}
	return 0
}

// periodFromIntervals clusters inter-onset intervals and returns the median
// of the most populated cluster. Equal-sized clusters go to the one whose
// tempo is closest to referenceBPM, then to the shorter interval.
func periodFromIntervals(onsets []int, frameRate float64) (float64, bool) {
	var obs clusters.Observations
	for i := 1; i < len(onsets); i++ {
		ioi := float64(onsets[i]-onsets[i-1]) / frameRate
		if ioi < minInterval || ioi > maxInterval {
			continue
		}
		obs = append(obs, intervalObservation{seconds: ioi, coords: clusters.Coordinates{ioi}})
	}
	if len(obs) < 2 {
		return 0, false
	}

	var (
		best       float64
		bestSize   int
		bestOffset float64
	)
	for _, g := range groupIntervals(obs, min(maxIntervalGroup, len(obs))) {
		if len(g.Observations) == 0 {
			continue
		}
		period := medianInterval(g.Observations)
		offset := math.Abs(60/period - referenceBPM)

		switch {
		case len(g.Observations) > bestSize:
		case len(g.Observations) < bestSize:
			continue
		case offset < bestOffset:
		case offset == bestOffset && period < best:
		default:
			continue
		}
		best, bestSize, bestOffset = period, len(g.Observations), offset
	}
	if bestSize == 0 {
		return medianInterval(obs), true
	}
	return best, true
}

// groupIntervals runs k-means over one-dimensional intervals. Centers start
// at evenly spaced quantiles of the sorted data, so the same input always
// yields the same clusters.
func groupIntervals(obs clusters.Observations, k int) clusters.Clusters {
	sorted := make([]float64, 0, len(obs))
	for _, o := range obs {
		sorted = append(sorted, o.Coordinates()[0])
	}
	sort.Float64s(sorted)

	cc := make(clusters.Clusters, 0, k)
	for i := 0; i < k; i++ {
		c := stat.Quantile((float64(i)+0.5)/float64(k), stat.Empirical, sorted, nil)
		if n := len(cc); n > 0 && cc[n-1].Center[0] == c {
			continue
		}
		cc = append(cc, clusters.Cluster{Center: clusters.Coordinates{c}})
	}

	assigned := make([]int, len(obs))
	for i := range assigned {
		assigned[i] = -1
	}
	for _i := 0; _i < maxGroupIterations; _i++ {
		cc.Reset()
		changed := false
		for i, o := range obs {
			ci := cc.Nearest(o)
			cc[ci].Append(o)
			if assigned[i] != ci {
				assigned[i] = ci
				changed = true
			}
		}
		if !changed {
			break
		}
		cc.Recenter()
	}
	return cc
}

func medianInterval(obs clusters.Observations) float64 {
	values := make([]float64, 0, len(obs))
	for _, o := range obs {
		if io, ok := o.(intervalObservation); ok {
			values = append(values, io.seconds)
		}
	}
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}

// autocorrelationTempo picks the lag with the strongest self-similarity of
// the onset envelope inside the allowed tempo range.
func autocorrelationTempo(env []float64, frameRate, minBPM, maxBPM float64) float64 {
	mean := stat.Mean(env, nil)
	centered := make([]float64, len(env))
	energy := 0.0
	for i, v := range env {
		centered[i] = v - mean
		energy += centered[i] * centered[i]
	}
	if energy <= 0 {
		return 0
	}

	minLag := int(math.Floor(60 * frameRate / maxBPM))
	maxLag := int(math.Ceil(60 * frameRate / minBPM))
	minLag = max(minLag, 1)
	if maxLag >= len(centered) {
		maxLag = len(centered) - 1
	}

	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := lag; i < len(centered); i++ {
			score += centered[i] * centered[i-lag]
		}
		if score > bestScore {
			bestLag, bestScore = lag, score
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60 * frameRate / float64(bestLag)
}

// foldTempo doubles or halves bpm until it falls in [lo, hi].
func foldTempo(bpm, lo, hi float64) float64 {
	if bpm <= 0 || lo <= 0 || hi < 2*lo {
		return bpm
	}
	for bpm < lo {
		bpm *= 2
	}
	for bpm > hi {
		bpm /= 2
	}
	return bpm
}
