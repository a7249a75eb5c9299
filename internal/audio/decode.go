package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// WAVE format tag for IEEE float samples.
const wavFormatFloat = 3

// mp3 output is always 16-bit little-endian stereo.
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
)

// DecodeFile opens and decodes an audio file.
// Only the first maxDuration of audio is decoded; zero decodes everything.
func DecodeFile(path string, maxDuration time.Duration) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding audio file: %w", err)
	}

	format := Sniff(header[:n])
	if format == FormatUnknown {
		format = FormatFromPath(path)
	}

	return Decode(f, format, maxDuration)
}

// Decode decodes audio of a known format from r.
func Decode(r io.ReadSeeker, format Format, maxDuration time.Duration) (*Buffer, error) {
	var (
		buf *Buffer
		err error
	)
	switch format {
	case FormatMP3:
		buf, err = decodeMP3(r, maxDuration)
	case FormatWAV:
		buf, err = decodeWAV(r, maxDuration)
	case FormatFLAC:
		buf, err = decodeFLAC(r, maxDuration)
	case FormatOGG:
		buf, err = decodeOGG(r, maxDuration)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(buf.Samples) == 0 {
		return nil, ErrEmpty
	}
	return buf, nil
}

func decodeMP3(r io.Reader, maxDuration time.Duration) (*Buffer, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("creating mp3 decoder: %w", err)
	}

	sampleRate := d.SampleRate()
	maxFrames := maxFramesFor(maxDuration, sampleRate)

	var samples []float64
	if length := d.Length(); length > 0 {
		frames := int(length / mp3BytesPerFrame)
		if maxFrames > 0 && frames > maxFrames {
			frames = maxFrames
		}
		samples = make([]float64, 0, frames*mp3Channels)
	}

	chunk := make([]byte, 4096*mp3BytesPerFrame)
	for {
		n, err := io.ReadFull(d, chunk)
		n -= n % mp3BytesPerFrame
		for i := 0; i+1 < n; i += 2 {
			s := int16(chunk[i]) | int16(chunk[i+1])<<8
			samples = append(samples, float64(s)/32768)
		}

		if maxFrames > 0 && len(samples)/mp3Channels >= maxFrames {
			samples = samples[:maxFrames*mp3Channels]
			break
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding mp3: %w", err)
		}
	}

	return &Buffer{Samples: samples, Channels: mp3Channels, SampleRate: sampleRate}, nil
}

func decodeWAV(r io.ReadSeeker, maxDuration time.Duration) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file", ErrUnsupportedFormat)
	}

	channels := int(d.NumChans)
	sampleRate := int(d.SampleRate)
	bitDepth := int(d.BitDepth)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("%w: malformed wav header", ErrUnsupportedFormat)
	}

	maxFrames := maxFramesFor(maxDuration, sampleRate)

	switch d.WavAudioFormat {
	case wavPCM:
	case wavFormatFloat:
		return decodeFloatWAV(d, channels, sampleRate, bitDepth, maxFrames)
	default:
		return nil, fmt.Errorf("%w: wav encoding %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	fullScale := float64(int64(1) << (bitDepth - 1))

	chunk := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, 4096*channels),
	}

	var samples []float64
	for {
		n, err := d.PCMBuffer(chunk)
		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eof {
			return nil, fmt.Errorf("decoding wav: %w", err)
		}
		for _, v := range chunk.Data[:n] {
			if bitDepth == 8 {
				// 8-bit wav is unsigned
				samples = append(samples, float64(v-128)/128)
				continue
			}
			samples = append(samples, float64(v)/fullScale)
		}
		if maxFrames > 0 && len(samples)/channels >= maxFrames {
			samples = samples[:maxFrames*channels]
			break
		}
		if n == 0 || eof {
			break
		}
	}

	// drop a trailing partial frame
	samples = samples[:len(samples)-len(samples)%channels]

	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}, nil
}

// decodeFloatWAV reads IEEE float samples straight from the data chunk;
// go-audio only converts integer PCM.
func decodeFloatWAV(d *wav.Decoder, channels, sampleRate, bitDepth, maxFrames int) (*Buffer, error) {
	if bitDepth != 32 && bitDepth != 64 {
		return nil, fmt.Errorf("%w: %d-bit float wav", ErrUnsupportedFormat, bitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}
	if d.PCMChunk == nil {
		return nil, fmt.Errorf("decoding wav: %w", wav.ErrPCMChunkNotFound)
	}

	width := bitDepth / 8
	raw := make([]byte, 4096*channels*width)
	var (
		samples []float64
		pending []byte
	)
	for {
		n, err := d.PCMChunk.R.Read(raw)
		pending = append(pending, raw[:n]...)

		whole := len(pending) - len(pending)%width
		for i := 0; i < whole; i += width {
			if width == 4 {
				samples = append(samples, float64(math.Float32frombits(binary.LittleEndian.Uint32(pending[i:]))))
				continue
			}
			samples = append(samples, math.Float64frombits(binary.LittleEndian.Uint64(pending[i:])))
		}
		pending = pending[whole:]

		if maxFrames > 0 && len(samples)/channels >= maxFrames {
			samples = samples[:maxFrames*channels]
			break
		}
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding wav: %w", err)
		}
	}

	samples = samples[:len(samples)-len(samples)%channels]
	return &Buffer{Samples: samples, Channels: channels, SampleRate: sampleRate}, nil
}
