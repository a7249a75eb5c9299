package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"song.mp3", FormatMP3},
		{"SONG.MP3", FormatMP3},
		{"dir/take.wav", FormatWAV},
		{"take.wave", FormatWAV},
		{"track.flac", FormatFLAC},
		{"take.ogg", FormatOGG},
		{"take.OGA", FormatOGG},
		{"track.m4a", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"wav", []byte("RIFF\x24\x08\x00\x00WAVEfmt "), FormatWAV},
		{"id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), FormatMP3},
		{"mpeg frame", []byte{0xFF, 0xFB, 0x90, 0x64}, FormatMP3},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), FormatFLAC},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), FormatOGG},
		{"riff but not wave", []byte("RIFF\x00\x00\x00\x00AVI "), FormatUnknown},
		{"text", []byte("hello world!"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.header); got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBufferMono(t *testing.T) {
	b := &Buffer{
		Samples:    []float64{1, 0, 0.5, 0.5, -1, 1},
		Channels:   2,
		SampleRate: 10,
	}

	got := b.Mono()
	want := []float64{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len(Mono()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Mono()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferTruncate(t *testing.T) {
	b := &Buffer{
		Samples:    make([]float64, 2*100),
		Channels:   2,
		SampleRate: 10,
	}

	b.Truncate(3 * time.Second)
	if b.Frames() != 30 {
		t.Errorf("Frames() = %d, want 30", b.Frames())
	}
	if b.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", b.Duration())
	}

	b.Truncate(0)
	if b.Frames() != 30 {
		t.Errorf("Truncate(0) changed frames to %d", b.Frames())
	}
}

func TestResample(t *testing.T) {
	in := []float64{0, 1, 2, 3, 4, 5, 6, 7}

	t.Run("downsample by two", func(t *testing.T) {
		got, err := Resample(in, 8, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []float64{0, 2, 4, 6}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-9 {
				t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("upsample by two interpolates", func(t *testing.T) {
		got, err := Resample(in, 4, 8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 16 {
			t.Fatalf("len = %d, want 16", len(got))
		}
		if math.Abs(got[1]-0.5) > 1e-9 {
			t.Errorf("got[1] = %v, want 0.5", got[1])
		}
		if got[15] != 7 {
			t.Errorf("got[15] = %v, want clamped 7", got[15])
		}
	})

	t.Run("same rate copies", func(t *testing.T) {
		got, err := Resample(in, 8, 8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got[0] = 99
		if in[0] != 0 {
			t.Error("Resample aliased its input")
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		if _, err := Resample(in, 0, 8); err == nil {
			t.Error("expected error for zero rate")
		}
	})
}

func TestBufferRespeed(t *testing.T) {
	b := &Buffer{
		Samples:    make([]float64, 2*1000),
		Channels:   2,
		SampleRate: 1000,
	}

	// Twice as fast: one second of audio becomes half a second.
	out, err := b.Respeed(2.0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Frames() != 500 {
		t.Errorf("Frames() = %d, want 500", out.Frames())
	}
	if out.Channels != 2 || out.SampleRate != 1000 {
		t.Errorf("got %d channels at %d Hz", out.Channels, out.SampleRate)
	}

	if _, err := b.Respeed(0, 1000); err == nil {
		t.Error("expected error for zero speed")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	const rate = 8000
	samples := make([]float64, 2*rate/2)
	for i := 0; i < rate/2; i++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
		samples[2*i] = v
		samples[2*i+1] = -v
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFile(path, &Buffer{Samples: samples, Channels: 2, SampleRate: rate}); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	got, err := DecodeFile(path, 0)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if got.Channels != 2 || got.SampleRate != rate {
		t.Fatalf("decoded %d channels at %d Hz", got.Channels, got.SampleRate)
	}
	if got.Frames() != rate/2 {
		t.Fatalf("Frames() = %d, want %d", got.Frames(), rate/2)
	}
	for i := 0; i < len(samples); i += 97 {
		if math.Abs(got.Samples[i]-samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, got.Samples[i], samples[i])
		}
	}

	t.Run("max duration", func(t *testing.T) {
		got, err := DecodeFile(path, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("DecodeFile: %v", err)
		}
		if got.Frames() != rate/10 {
			t.Errorf("Frames() = %d, want %d", got.Frames(), rate/10)
		}
	})
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := DecodeFile(filepath.Join(dir, "nope.wav"), 0); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.mp3")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := DecodeFile(path, 0)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("err = %v, want ErrEmpty", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		if err := os.WriteFile(path, []byte("just some text here"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := DecodeFile(path, 0)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})
}
