package features

import (
	"errors"
	"math"

	"github.com/justestif/go-mood-tunes/internal/audio"
)

// chromaMinHz excludes sub-bass bins that carry no usable pitch information.
const chromaMinHz = 32.7 // C1

// Extractor computes AudioFeatures. It is safe for concurrent use.
type Extractor struct {
	cfg     Config
	melBank [][]float64
}

// NewExtractor creates an Extractor. Zero fields in cfg take their default.
func NewExtractor(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = def.HopSize
	}
	if cfg.NumMFCC <= 0 {
		cfg.NumMFCC = def.NumMFCC
	}
	if cfg.NumMelBands <= 0 {
		cfg.NumMelBands = def.NumMelBands
	}
	if cfg.MinTempo <= 0 {
		cfg.MinTempo = def.MinTempo
	}
	if cfg.MaxTempo <= 0 {
		cfg.MaxTempo = def.MaxTempo
	}

	return &Extractor{
		cfg:     cfg,
		melBank: melFilterbank(cfg.NumMelBands, cfg.FrameSize/2+1, float64(cfg.SampleRate)),
	}
}

// ExtractFile decodes the first MaxDuration of the file at path, mixes it to
// mono at the analysis rate and computes its features.
func (e *Extractor) ExtractFile(path string) (AudioFeatures, error) {
	buf, err := audio.DecodeFile(path, e.cfg.MaxDuration)
	if err != nil {
		return AudioFeatures{}, stageError("decode", err)
	}

	mono, err := audio.Resample(buf.Mono(), buf.SampleRate, e.cfg.SampleRate)
	if err != nil {
		return AudioFeatures{}, stageError("resample", err)
	}

	return e.Extract(mono)
}

// Extract computes features for a mono signal sampled at the configured rate.
// Either every descriptor is computed or an error is returned.
func (e *Extractor) Extract(samples []float64) (AudioFeatures, error) {
	if len(samples) == 0 {
		return AudioFeatures{}, stageError("input", audio.ErrEmpty)
	}
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return AudioFeatures{}, stageError("input", errors.New("signal contains non-finite samples"))
		}
	}

	if limit := int(e.cfg.MaxDuration.Seconds() * float64(e.cfg.SampleRate)); len(samples) > limit {
		samples = samples[:limit]
	}

	frames := frame(samples, e.cfg.FrameSize, e.cfg.HopSize)
	spec := stft(samples, e.cfg)

	mfccMean, mfccStd := mfccStats(spec, e.melBank, e.cfg.NumMFCC)

	f := AudioFeatures{
		Tempo:            estimateTempo(spec, e.cfg),
		SpectralCentroid: spectralCentroid(spec),
		MFCCMean:         mfccMean,
		MFCCStd:          mfccStd,
		ZCR:              zeroCrossingRate(frames),
		Energy:           rmsEnergy(frames),
		ChromaMean:       chromaMean(spec, chromaMinHz),
	}

	if err := f.validate(); err != nil {
		return AudioFeatures{}, stageError("descriptors", err)
	}
	return f, nil
}

func (f AudioFeatures) validate() error {
	for _, v := range []float64{f.Tempo, f.SpectralCentroid, f.MFCCMean, f.MFCCStd, f.ZCR, f.Energy, f.ChromaMean} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("descriptor is not finite")
		}
	}
	return nil
}
