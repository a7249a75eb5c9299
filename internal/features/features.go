// Package features extracts a fixed set of acoustic descriptors from audio files.
package features

import (
	"errors"
	"fmt"
	"time"
)

// ErrExtraction is matched by every error returned from an Extractor.
var ErrExtraction = errors.New("feature extraction failed")

// AudioFeatures holds the descriptors computed for one audio clip.
type AudioFeatures struct {
	Tempo            float64 `json:"tempo"`             // BPM
	SpectralCentroid float64 `json:"spectral_centroid"` // Hz
	MFCCMean         float64 `json:"mfcc_mean"`
	MFCCStd          float64 `json:"mfcc_std"`
	ZCR              float64 `json:"zcr"`
	Energy           float64 `json:"energy"` // mean RMS
	ChromaMean       float64 `json:"chroma_mean"`
}

// ExtractionError reports which stage of extraction failed.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrExtraction, e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExtraction) true for any ExtractionError.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

func stageError(stage string, err error) error {
	return &ExtractionError{Stage: stage, Err: err}
}

// Config controls analysis parameters.
type Config struct {
	SampleRate  int           // analysis rate; input is resampled to it
	MaxDuration time.Duration // only the start of each file is analysed
	FrameSize   int           // STFT window length, power of two
	HopSize     int
	NumMFCC     int
	NumMelBands int
	MinTempo    float64 // BPM range the estimate is folded into
	MaxTempo    float64
}

// DefaultConfig returns the standard analysis settings.
func DefaultConfig() Config {
	return Config{
		SampleRate:  22050,
		MaxDuration: 30 * time.Second,
		FrameSize:   2048,
		HopSize:     512,
		NumMFCC:     13,
		NumMelBands: 128,
		MinTempo:    70,
		MaxTempo:    180,
	}
}
