// Package remix renders a mood-flavoured version of an audio file.
package remix

import (
	"fmt"
	"math"
	"time"

	"github.com/justestif/go-mood-tunes/internal/audio"
	"github.com/justestif/go-mood-tunes/internal/mood"
)

const (
	// OutputRate is the sample rate of sped-up or slowed-down remixes.
	OutputRate = 44100

	DefaultFadeIn  = 2 * time.Second
	DefaultFadeOut = 3 * time.Second

	// silenceDB is where fades start and end.
	silenceDB = -120.0
)

// Transformer applies a remix profile to audio files.
type Transformer struct {
	fadeIn  time.Duration
	fadeOut time.Duration
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithFades overrides the fade durations. Zero disables a fade.
func WithFades(in, out time.Duration) Option {
	return func(t *Transformer) {
		t.fadeIn = max(in, 0)
		t.fadeOut = max(out, 0)
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{fadeIn: DefaultFadeIn, fadeOut: DefaultFadeOut}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform reads in, applies p and writes a 16-bit WAV to out.
func (t *Transformer) Transform(in, out string, p mood.RemixProfile) error {
	buf, err := audio.DecodeFile(in, 0)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", in, err)
	}

	buf, err = t.Apply(buf, p)
	if err != nil {
		return err
	}

	if err := audio.WriteWAVFile(out, buf); err != nil {
		return fmt.Errorf("writing remix: %w", err)
	}
	return nil
}

// Apply returns a remixed copy of buf.
func (t *Transformer) Apply(buf *audio.Buffer, p mood.RemixProfile) (*audio.Buffer, error) {
	if p.Speed <= 0 {
		return nil, fmt.Errorf("invalid remix speed %v", p.Speed)
	}

	out := &audio.Buffer{
		Samples:    append([]float64(nil), buf.Samples...),
		Channels:   buf.Channels,
		SampleRate: buf.SampleRate,
	}

	if p.Speed != 1 {
		var err error
		out, err = out.Respeed(p.Speed, OutputRate)
		if err != nil {
			return nil, fmt.Errorf("changing speed: %w", err)
		}
	}

	applyGain(out.Samples, p.GainDB)
	fadeIn(out, t.fadeIn)
	fadeOut(out, t.fadeOut)
	return out, nil
}

func dbToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

func applyGain(samples []float64, db float64) {
	if db == 0 {
		return
	}
	g := dbToAmplitude(db)
	for i := range samples {
		samples[i] *= g
	}
}

// fadeFrames clamps a fade duration to the buffer length in frames.
func fadeFrames(b *audio.Buffer, d time.Duration) int {
	n := int(d.Seconds() * float64(b.SampleRate))
	return min(n, b.Frames())
}

// fadeGain is the amplitude at position pos of an n-frame fade from silence.
// The ramp is linear in decibels.
func fadeGain(pos, n int) float64 {
	return dbToAmplitude(silenceDB * (1 - float64(pos)/float64(n)))
}

func fadeIn(b *audio.Buffer, d time.Duration) {
	n := fadeFrames(b, d)
	for f := 0; f < n; f++ {
		scaleFrame(b, f, fadeGain(f, n))
	}
}

func fadeOut(b *audio.Buffer, d time.Duration) {
	n := fadeFrames(b, d)
	frames := b.Frames()
	for i := 0; i < n; i++ {
		// Last frame is fully silent.
		scaleFrame(b, frames-1-i, fadeGain(i, n))
	}
}

func scaleFrame(b *audio.Buffer, frame int, g float64) {
	start := frame * b.Channels
	for c := 0; c < b.Channels; c++ {
		b.Samples[start+c] *= g
	}
}
