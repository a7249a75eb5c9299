package features

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// spectrogram holds per-frame magnitude spectra (frameSize/2+1 bins each).
type spectrogram struct {
	frames     [][]float64
	binHz      float64
	sampleRate int
	hopSize    int
}

// frame slices samples into centered, zero-padded frames.
// Frame t covers samples [t*hop - size/2, t*hop + size/2).
func frame(samples []float64, size, hop int) [][]float64 {
	half := size / 2
	padded := make([]float64, len(samples)+size)
	copy(padded[half:], samples)

	n := 1 + (len(padded)-size)/hop
	frames := make([][]float64, n)
	for t := 0; t < n; t++ {
		frames[t] = padded[t*hop : t*hop+size]
	}
	return frames
}

// stft computes the magnitude spectrogram with a Hann window.
func stft(samples []float64, cfg Config) *spectrogram {
	win := window.Hann(cfg.FrameSize)
	frames := frame(samples, cfg.FrameSize, cfg.HopSize)
	bins := cfg.FrameSize/2 + 1

	spec := &spectrogram{
		frames:     make([][]float64, len(frames)),
		binHz:      float64(cfg.SampleRate) / float64(cfg.FrameSize),
		sampleRate: cfg.SampleRate,
		hopSize:    cfg.HopSize,
	}

	buf := make([]float64, cfg.FrameSize)
	for t, f := range frames {
		for i := range buf {
			buf[i] = f[i] * win[i]
		}
		coeffs := fft.FFTReal(buf)

		mags := make([]float64, bins)
		for k := 0; k < bins; k++ {
			mags[k] = cmplx.Abs(coeffs[k])
		}
		spec.frames[t] = mags
	}
	return spec
}

// power returns squared magnitudes for frame t.
func (s *spectrogram) power(t int) []float64 {
	mags := s.frames[t]
	p := make([]float64, len(mags))
	for k, m := range mags {
		p[k] = m * m
	}
	return p
}

// frameRate is the number of spectrogram frames per second.
func (s *spectrogram) frameRate() float64 {
	return float64(s.sampleRate) / float64(s.hopSize)
}
