package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/renameio/v2"

	"github.com/mohammad-safakhou/itinerary/models"
)

// FileStore keeps one JSON document per key under dir, named "<key>.json".
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N} ._,'()&+-]`)

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, unsafeFileChars.ReplaceAllString(key, "_")+".json")
}

func (s *FileStore) Load(_ context.Context, key string) (*models.CacheEntry, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path(key), err)
	}
	return &entry, nil
}

// Save replaces the entry atomically so readers never see a partial document.
func (s *FileStore) Save(_ context.Context, key string, entry models.CacheEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	b, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(s.Path(key), b, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
