// Package local implements the storage port on the local filesystem.
//
// URIs are relative paths under raw/, text/ and evidence/ inside a base
// directory. A shared volume gives every worker the same view.
package local

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
)

// Store reads and writes pipeline artifacts under BaseDir.
type Store struct{ BaseDir string }

// New creates the raw/, text/ and evidence/ subdirectories and returns a Store.
func New(baseDir string) (*Store, error) {
	for _, sub := range []string{"raw", "text", "evidence"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("op=storage.init: %w", err)
		}
	}
	return &Store{BaseDir: baseDir}, nil
}

// resolve maps a stored URI onto the base directory, rejecting anything that
// would escape it.
func (s *Store) resolve(uri string) (string, error) {
	clean := filepath.Clean(uri)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("op=storage.resolve: uri %q: %w", uri, domain.ErrInvalidArgument)
	}
	return filepath.Join(s.BaseDir, clean), nil
}

// ReadRaw returns the raw bytes stored at the given URI.
func (s *Store) ReadRaw(_ domain.Context, uri string) ([]byte, error) {
	p, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("op=storage.read_raw: %s: %w", uri, domain.ErrInputMissing)
		}
		return nil, fmt.Errorf("op=storage.read_raw: %w", err)
	}
	return b, nil
}

// ReadText returns extracted text stored at the given URI.
func (s *Store) ReadText(ctx domain.Context, uri string) (string, error) {
	b, err := s.ReadRaw(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteRaw stores an uploaded document and returns its URI. The extension of
// the original filename is preserved so content sniffing has a hint.
func (s *Store) WriteRaw(_ domain.Context, originalFilename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	uri := filepath.ToSlash(filepath.Join("raw", uuid.New().String()+ext))
	if err := s.write(uri, content); err != nil {
		return "", err
	}
	return uri, nil
}

// WriteText stores the extracted plain text for a candidate and returns its URI.
func (s *Store) WriteText(_ domain.Context, candidateID, content string) (string, error) {
	uri := filepath.ToSlash(filepath.Join("text", fmt.Sprintf("%s_%s.txt", candidateID, uuid.New().String())))
	if err := s.write(uri, []byte(content)); err != nil {
		return "", err
	}
	return uri, nil
}

// WriteEvidence stores the raw evidence JSON blob for a candidate and returns
// its URI.
func (s *Store) WriteEvidence(_ domain.Context, candidateID, content string) (string, error) {
	uri := filepath.ToSlash(filepath.Join("evidence", fmt.Sprintf("%s_%s.json", candidateID, uuid.New().String())))
	if err := s.write(uri, []byte(content)); err != nil {
		return "", err
	}
	return uri, nil
}

func (s *Store) write(uri string, content []byte) error {
	p, err := s.resolve(uri)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return fmt.Errorf("op=storage.write: %w: %v", domain.ErrStorageFailure, err)
	}
	return nil
}
