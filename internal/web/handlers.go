package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/features"
	"github.com/justestif/go-mood-tunes/internal/mood"
	"github.com/justestif/go-mood-tunes/internal/recommend"
	"github.com/justestif/go-mood-tunes/internal/storage"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 1 << 20

// Analyzer extracts features from a stored audio file.
type Analyzer interface {
	ExtractFile(path string) (features.AudioFeatures, error)
}

// Recommender builds a recommendation list for a mood.
type Recommender interface {
	Recommend(ctx context.Context, m mood.Mood) (*recommend.Result, error)
}

// Remixer renders a remix of in to out.
type Remixer interface {
	Transform(in, out string, p mood.RemixProfile) error
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	analyzer    Analyzer
	recommender Recommender
	remixer     Remixer
	store       *storage.Store
	maxUpload   int64
	logger      *zap.Logger
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxUpload sets the request body limit for uploads.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(analyzer Analyzer, recommender Recommender, remixer Remixer, store *storage.Store, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		analyzer:    analyzer,
		recommender: recommender,
		remixer:     remixer,
		store:       store,
		maxUpload:   storage.DefaultMaxSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health reports liveness (GET /api/health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Message: "API is running"})
}

// Analyze stores an uploaded clip and classifies its mood (POST /api/analyze).
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "No file provided")
		default:
			writeError(w, http.StatusBadRequest, "Invalid upload")
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	upload, err := h.store.Save(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "Invalid file type")
		case errors.Is(err, storage.ErrInvalidFile):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("saving upload", zap.String("file", header.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to save file")
		}
		return
	}

	log := h.logger.With(zap.String("file", upload.Name), zap.String("original", upload.Original))
	log.Info("analyzing upload")

	f, err := h.analyzer.ExtractFile(upload.Path)
	if err != nil {
		log.Warn("feature extraction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to extract audio features")
		return
	}

	score := mood.Estimate(f)
	c := mood.Classify(score)
	log.Info("detected mood", zap.String("mood", c.Mood.String()), zap.Float64("confidence", c.Confidence))

	writeJSON(w, http.StatusOK, analyzeResponse{
		Mood:        c.Mood,
		Confidence:  c.Confidence,
		Description: mood.Description(c.Mood),
		AudioFeatures: analyzeFeatures{
			Valence:          score.Valence,
			Energy:           score.Energy,
			Tempo:            f.Tempo,
			SpectralCentroid: f.SpectralCentroid,
		},
		Filename: upload.Name,
		Title:    upload.Title,
		Artist:   upload.Artist,
	})
}

// Recommend returns catalog tracks for a mood (POST /api/recommend).
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	m := mood.Parse(req.Mood)
	result, err := h.recommender.Recommend(r.Context(), m)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrNoResults):
			writeError(w, http.StatusNotFound, "No songs found matching criteria")
		case errors.Is(err, recommend.ErrCatalogUnavailable):
			h.logger.Error("catalog unavailable", zap.Error(err))
			writeError(w, http.StatusBadGateway, "Music catalog unavailable")
		default:
			h.logger.Error("recommending", zap.String("mood", m.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to get recommendations")
		}
		return
	}

	writeJSON(w, http.StatusOK, newRecommendResponse(result))
}

// Remix renders a mood remix of a previous upload (POST /api/remix).
func (h *Handlers) Remix(w http.ResponseWriter, r *http.Request) {
	var req remixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "Filename required")
		return
	}

	in, err := h.store.Resolve(req.Filename)
	if err != nil {
		writeError(w, http.StatusNotFound, "Original file not found")
		return
	}

	if req.Mood == "" {
		req.Mood = mood.Default.String()
	}

	name := storage.RemixName(req.Filename)
	log := h.logger.With(zap.String("file", req.Filename), zap.String("mood", req.Mood))
	log.Info("creating remix")

	if err := h.remixer.Transform(in, h.store.RemixPath(req.Filename), mood.Remix(req.Mood)); err != nil {
		log.Error("remix failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create remix")
		return
	}

	writeJSON(w, http.StatusOK, remixResponse{
		Message:       "Remix created successfully",
		RemixFilename: name,
	})
}

// Download serves a stored file as an attachment (GET /api/download/{filename}).
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := h.store.Resolve(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// decodeJSON reads a JSON body. An empty body decodes to the zero value.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
