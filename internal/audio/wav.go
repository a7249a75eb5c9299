package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth = 16
	wavPCM      = 1
)

// WriteWAV encodes b as 16-bit PCM WAV. Samples outside [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, b *Buffer) error {
	if b.Channels <= 0 || b.SampleRate <= 0 {
		return fmt.Errorf("invalid buffer: %d channels at %d Hz", b.Channels, b.SampleRate)
	}

	enc := wav.NewEncoder(w, b.SampleRate, wavBitDepth, b.Channels, wavPCM)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = toInt16(s)
	}

	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes b to path, replacing any existing file.
func WriteWAVFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteWAV(f, b); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func toInt16(s float64) int {
	if math.IsNaN(s) {
		return 0
	}
	v := math.Round(s * 32767)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int(v)
}
