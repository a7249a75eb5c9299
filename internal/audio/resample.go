package audio

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Resample converts a single channel from one sample rate to another using
// piecewise linear interpolation.
func Resample(samples []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}
	if from == to || len(samples) == 0 {
		return append([]float64(nil), samples...), nil
	}
	if len(samples) == 1 {
		return []float64{samples[0]}, nil
	}

	xs := make([]float64, len(samples))
	for i := range xs {
		xs[i] = float64(i)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, samples); err != nil {
		return nil, fmt.Errorf("fitting interpolator: %w", err)
	}

	ratio := float64(from) / float64(to)
	outLen := int(float64(len(samples)) * float64(to) / float64(from))
	last := xs[len(xs)-1]

	out := make([]float64, outLen)
	for i := range out {
		x := float64(i) * ratio
		if x > last {
			x = last
		}
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// Resample returns a copy of b at a new sample rate. Channels are resampled
// independently.
func (b *Buffer) Resample(to int) (*Buffer, error) {
	if b.SampleRate == to {
		return &Buffer{
			Samples:    append([]float64(nil), b.Samples...),
			Channels:   b.Channels,
			SampleRate: to,
		}, nil
	}
	return resampleInterleaved(b.Samples, b.Channels, b.SampleRate, to)
}

// resampleInterleaved treats samples as if they were recorded at from Hz.
func resampleInterleaved(samples []float64, channels, from, to int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	frames := len(samples) / channels
	var out []float64
	for c := 0; c < channels; c++ {
		ch := make([]float64, frames)
		for i := 0; i < frames; i++ {
			ch[i] = samples[i*channels+c]
		}

		res, err := Resample(ch, from, to)
		if err != nil {
			return nil, fmt.Errorf("resampling channel %d: %w", c, err)
		}
		if out == nil {
			out = make([]float64, len(res)*channels)
		}
		for i, v := range res {
			out[i*channels+c] = v
		}
	}

	return &Buffer{Samples: out, Channels: channels, SampleRate: to}, nil
}

// Respeed plays b back at speed times its original rate and returns the
// result sampled at outRate. Pitch moves with speed.
func (b *Buffer) Respeed(speed float64, outRate int) (*Buffer, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("invalid speed %v", speed)
	}
	virtualRate := int(float64(b.SampleRate) * speed)
	return resampleInterleaved(b.Samples, b.Channels, virtualRate, outRate)
}
