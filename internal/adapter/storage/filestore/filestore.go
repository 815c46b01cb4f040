package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"user-record-service/internal/adapter/storage"
	domain "user-record-service/internal/domain/user"
)

// Store keeps the document in a single JSON file on the local filesystem.
type Store struct {
	path string
	log  *zap.Logger
}

// New creates a file-backed document store for path.
func New(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document file. A missing file yields an empty document.
func (s *Store) Load(_ context.Context) (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("document file not found, starting empty", zap.String("path", s.path))
		return domain.NewDocument(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document file %s: %w", s.path, err)
	}

	return storage.DecodeDocument(data, s.path)
}

// Save replaces the document file. The new content is written to a
// temporary file in the same directory, synced, and renamed over the old
// one, so readers see either the previous or the new document.
func (s *Store) Save(_ context.Context, doc *domain.Document) error {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
		}
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error("failed to write document file", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("failed to write document file %s: %w", s.path, err)
	}

	s.log.Debug("document file written", zap.String("path", s.path), zap.Int("bytes", len(data)))
	return nil
}
