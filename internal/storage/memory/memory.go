// Package memory provides an in-memory Storage implementation for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/avelkov/account-service/internal/storage"
)

// Storage keeps uploaded files in process memory.
type Storage struct {
	mu      sync.RWMutex
	files   map[string][]byte
	baseURL string
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty in-memory storage. baseURL is prepended to keys to
// form public URLs.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string][]byte),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *Storage) Upload(ctx context.Context, f storage.File) (*storage.UploadResult, error) {
	data, err := io.ReadAll(f.Content)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	key := uuid.NewString() + path.Ext(f.Name)

	s.mu.Lock()
	s.files[key] = data
	s.mu.Unlock()

	return &storage.UploadResult{Key: key, URL: s.URL(key)}, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.files, key)
	s.mu.Unlock()
	return nil
}

func (s *Storage) URL(key string) string {
	return s.baseURL + "/" + key
}

// Get returns the stored bytes for a key. Test helper.
func (s *Storage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[key]
	return data, ok
}
