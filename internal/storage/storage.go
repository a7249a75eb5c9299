// Package storage keeps uploaded audio and generated remixes on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"github.com/justestif/go-mood-tunes/internal/audio"
)

// DefaultMaxSize matches the upload limit of the web frontend.
const DefaultMaxSize int64 = 16 << 20 // 16 MB

// sniffLen is enough header for audio.Sniff.
const sniffLen = 12

var (
	// ErrInvalidFile is returned for empty, oversized or malformed uploads.
	ErrInvalidFile = errors.New("invalid file")

	// ErrUnsupportedFormat is returned for files in a format audio cannot decode.
	ErrUnsupportedFormat = errors.New("invalid file type, upload MP3, WAV, FLAC or OGG")

	// ErrNotFound is returned when a requested file does not exist.
	ErrNotFound = errors.New("file not found")
)

// Upload describes a stored file.
type Upload struct {
	Name     string // name inside the store, safe to hand to clients
	Path     string
	Original string
	Format   audio.Format
	Size     int64
	Title    string
	Artist   string
}

// Store saves files under a single directory.
type Store struct {
	dir     string
	maxSize int64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	s := &Store{dir: abs, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes an upload named original to the store under a fresh name.
// The extension must name a decodable format and the content must match it.
func (s *Store) Save(original string, r io.Reader) (*Upload, error) {
	format := audio.FormatFromPath(original)
	if format == audio.FormatUnknown {
		return nil, ErrUnsupportedFormat
	}

	name := uuid.New().String() + "." + string(format)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if err == nil {
		err = checkUpload(f, format, size, s.maxSize)
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	u := &Upload{
		Name:     name,
		Path:     path,
		Original: filepath.Base(original),
		Format:   format,
		Size:     size,
	}
	u.Title, u.Artist = readTags(f)

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing upload file: %w", err)
	}
	return u, nil
}

// checkUpload validates size and magic bytes of a freshly written upload.
func checkUpload(f *os.File, format audio.Format, size, maxSize int64) error {
	switch {
	case size == 0:
		return fmt.Errorf("%w: no file selected", ErrInvalidFile)
	case size > maxSize:
		return fmt.Errorf("%w: larger than %d MB", ErrInvalidFile, maxSize>>20)
	}

	header := make([]byte, sniffLen)
	n, err := f.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading upload header: %w", err)
	}
	if got := audio.Sniff(header[:n]); got != format {
		return fmt.Errorf("%w: content is not %s audio", ErrInvalidFile, format)
	}
	return nil
}

// readTags returns embedded title and artist, if any.
func readTags(rs io.ReadSeeker) (title, artist string) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", ""
	}
	m, err := tag.ReadFrom(rs)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist())
}

// Resolve maps a client-supplied file name to a path inside the store.
// Names containing path separators or parent references are rejected.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", fmt.Errorf("checking file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return path, nil
}

// RemixName returns the output name for a remix of the stored file name.
func RemixName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return "remix_" + base + ".wav"
}

// RemixPath returns where the remix of name is written.
func (s *Store) RemixPath(name string) string {
	return filepath.Join(s.dir, RemixName(name))
}
