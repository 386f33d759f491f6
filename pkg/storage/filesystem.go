package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage persists document content on disk under a base directory.
// Encryption at rest, when a tenant policy demands it, is the concern of
// the storage backend; this implementation stores plain bytes.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./documents"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the given bytes under the base dir and returns the locator.
func (s *LocalStorage) Save(locator string, data []byte) (string, error) {
	path := s.resolve(locator)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare content directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write content file: %w", err)
	}
	return locator, nil
}

// SaveStream copies from reader into the target file path.
func (s *LocalStorage) SaveStream(locator string, r io.Reader) (string, error) {
	path := s.resolve(locator)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare content directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create content file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write content stream: %w", err)
	}
	return locator, nil
}

// Read returns the full content stored at the locator.
func (s *LocalStorage) Read(locator string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(locator))
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return data, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(locator string) (*os.File, error) {
	file, err := os.Open(s.resolve(locator))
	if err != nil {
		return nil, fmt.Errorf("open content file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(locator string) error {
	if err := os.Remove(s.resolve(locator)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete content file: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(locator string) string {
	return s.resolve(locator)
}

func (s *LocalStorage) resolve(locator string) string {
	if filepath.IsAbs(locator) {
		return locator
	}
	return filepath.Join(s.baseDir, locator)
}
