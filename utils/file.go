package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes photos under Dir and serves them from URLPrefix.
// Used when R2 is not configured.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir, URLPrefix: "/" + strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")}
}

// EnsureDir creates the upload directory if it doesn't exist
func (s *LocalStore) EnsureDir() error {
	return os.MkdirAll(s.Dir, os.ModePerm)
}

func (s *LocalStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	clean := filepath.Clean("/" + key)
	dest := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return s.URLPrefix + filepath.ToSlash(clean), nil
}
