package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

func decodeFLAC(r io.Reader, maxDuration time.Duration) (*Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid flac stream: %v", ErrUnsupportedFormat, err)
	}

	channels := int(stream.Info.NChannels)
	sampleRate := int(stream.Info.SampleRate)
	bitDepth := int(stream.Info.BitsPerSample)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("%w: malformed flac header", ErrUnsupportedFormat)
	}

	maxFrames := maxFramesFor(maxDuration, sampleRate)
	fullScale := float64(int64(1) << (bitDepth - 1))

	var samples []float64
	if total := int(stream.Info.NSamples); total > 0 {
		if maxFrames > 0 && total > maxFrames {
			total = maxFrames
		}
		samples = make([]float64, 0, total*channels)
	}

	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding flac: %w", err)
		}
		if len(f.Subframes) != channels {
			return nil, fmt.Errorf("decoding flac: frame has %d channels, stream has %d", len(f.Subframes), channels)
		}

		// subframes are planar; interleave them
		for i := 0; i < int(f.BlockSize); i++ {
			for _, sub := range f.Subframes {
				samples = append(samples, float64(sub.Samples[i])/fullScale)
			}
		}

		if maxFrames > 0 && len(samples)/channels >= maxFrames {
			samples = samples[:maxFrames*channels]
			break
		}
	}

	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}, nil
}

func decodeOGG(r io.Reader, maxDuration time.Duration) (*Buffer, error) {
	d, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ogg vorbis stream: %v", ErrUnsupportedFormat, err)
	}

	channels := d.Channels()
	sampleRate := d.SampleRate()
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: malformed vorbis header", ErrUnsupportedFormat)
	}

	maxFrames := maxFramesFor(maxDuration, sampleRate)

	var samples []float64
	chunk := make([]float32, 4096*channels)
	for {
		n, err := d.Read(chunk)
		for _, v := range chunk[:n] {
			samples = append(samples, float64(v))
		}

		if maxFrames > 0 && len(samples)/channels >= maxFrames {
			samples = samples[:maxFrames*channels]
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding ogg vorbis: %w", err)
		}
		if n == 0 {
			break
		}
	}

	samples = samples[:len(samples)-len(samples)%channels]
	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}, nil
}
