// Package blob persists uploaded claim documents on local disk and hands
// back a stable URL for later retrieval.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/pkg/logger"
)

type Store struct {
	uploadDir string
	baseURL   string
}

// SavedDocument identifies a stored upload both on disk and over HTTP.
type SavedDocument struct {
	Name string
	Path string
	URL  string
}

func NewStore(uploadDir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{
		uploadDir: uploadDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the document under a collision-free name derived from the
// original filename.
func (s *Store) Save(filename string, data []byte) (*SavedDocument, error) {
	name := fmt.Sprintf("%s_%s", uuid.New().String()[:8], sanitize(filename))
	path := filepath.Join(s.uploadDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	logger.Debug("Document stored",
		zap.String("name", name),
		zap.Int("size_bytes", len(data)),
	)

	return &SavedDocument{
		Name: name,
		Path: path,
		URL:  fmt.Sprintf("%s/%s", s.baseURL, name),
	}, nil
}

// Open returns the on-disk contents of a previously saved document.
func (s *Store) Open(name string) ([]byte, error) {
	clean := filepath.Base(name)
	data, err := os.ReadFile(filepath.Join(s.uploadDir, clean))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// Dir exposes the upload directory for static file serving.
func (s *Store) Dir() string {
	return s.uploadDir
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
