// Package audio decodes MP3, WAV, FLAC and Ogg Vorbis files into floating point PCM and
// provides the small set of buffer operations the analyzer and remixer need.
package audio

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrUnsupportedFormat is returned for files in a format Decode cannot read.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmpty is returned when a file decodes to zero samples.
	ErrEmpty = errors.New("audio contains no samples")
)

// Format identifies a container/codec.
type Format string

const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp3":
		return FormatMP3
	case "wav", "wave":
		return FormatWAV
	case "flac":
		return FormatFLAC
	case "ogg", "oga":
		return FormatOGG
	default:
		return FormatUnknown
	}
}

// Sniff identifies the format from the first bytes of a file.
func Sniff(header []byte) Format {
	if len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE" {
		return FormatWAV
	}
	if len(header) >= 4 && string(header[0:4]) == "fLaC" {
		return FormatFLAC
	}
	if len(header) >= 4 && string(header[0:4]) == "OggS" {
		return FormatOGG
	}
	if len(header) >= 3 && string(header[0:3]) == "ID3" {
		return FormatMP3
	}
	// MPEG frame sync: 11 set bits.
	if len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	return FormatUnknown
}

// Buffer is interleaved PCM with samples in [-1, 1].
type Buffer struct {
	Samples    []float64
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Mono averages all channels into a single channel.
func (b *Buffer) Mono() []float64 {
	if b.Channels <= 1 {
		return append([]float64(nil), b.Samples...)
	}

	frames := b.Frames()
	out := make([]float64, frames)
	scale := 1 / float64(b.Channels)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * b.Channels
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[base+c]
		}
		out[i] = sum * scale
	}
	return out
}

// Truncate drops everything after d. It is a no-op for d <= 0.
func (b *Buffer) Truncate(d time.Duration) {
	if d <= 0 || b.SampleRate <= 0 {
		return
	}
	maxFrames := maxFramesFor(d, b.SampleRate)
	if b.Frames() > maxFrames {
		b.Samples = b.Samples[:maxFrames*b.Channels]
	}
}

// maxFramesFor converts a duration into a frame count at the given rate.
// Zero means unlimited.
func maxFramesFor(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * float64(sampleRate))
}
