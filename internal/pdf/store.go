package pdf

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/domain"
)

// uploadTimeFormat prefixes stored uploads, e.g. 20260214_093000_paper.pdf.
const uploadTimeFormat = "20060102_150405"

// StoredFile describes an uploaded artifact persisted to disk.
type StoredFile struct {
	// Filename is the timestamped name the artifact was stored under.
	Filename string
	// Path is the on-disk location.
	Path string
	// SizeBytes is the stored size.
	SizeBytes int64
	// ContentHash is the SHA-256 hex digest of the content.
	ContentHash string
}

// Store persists uploaded PDF artifacts under timestamped names so repeated
// uploads of the same file never clobber each other.
type Store struct {
	dir    string
	now    func() time.Time // replaced in tests
	logger zerolog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger zerolog.Logger) *Store {
	if dir == "" {
		dir = "data/papers"
	}
	return &Store{
		dir:    dir,
		now:    time.Now,
		logger: logger.With().Str("component", "pdf_store").Logger(),
	}
}

// SaveUpload persists an uploaded PDF under a timestamped filename derived
// from the client-supplied name.
func (s *Store) SaveUpload(name string, content []byte) (*StoredFile, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	// Uploaded names are untrusted; keep only the final path element.
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return nil, fmt.Errorf("%w: filename %q is not usable", domain.ErrInvalidInput, name)
	}

	stored := s.now().Format(uploadTimeFormat) + "_" + name
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(s.dir, stored)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	hash := sha256.Sum256(content)
	s.logger.Info().
		Str("filename", stored).
		Int64("size_bytes", int64(len(content))).
		Msg("upload stored")

	return &StoredFile{
		Filename:    stored,
		Path:        path,
		SizeBytes:   int64(len(content)),
		ContentHash: hex.EncodeToString(hash[:]),
	}, nil
}
