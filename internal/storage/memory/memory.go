package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aleber123/nytt-sub001/internal/storage"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

type fileEntry struct {
	name        string
	contentType string
	data        []byte
}

// Storage implements storage.Storage using an in-memory map. File bytes are
// kept so they can be forwarded with the order.
type Storage struct {
	mu    sync.RWMutex
	files map[string]fileEntry
}

// New creates a new in-memory storage instance.
func New() *Storage {
	return &Storage{
		files: make(map[string]fileEntry),
	}
}

// Upload reads the file fully into memory, up to storage.MaxFileSize.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(input.Data, storage.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}
	if len(data) > storage.MaxFileSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file exceeds maximum size of %d bytes", storage.MaxFileSize))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[input.Key] = fileEntry{
		name:        input.Name,
		contentType: input.ContentType,
		data:        data,
	}

	return &storage.UploadResult{
		Key:         input.Key,
		ContentType: input.ContentType,
		Size:        int64(len(data)),
	}, nil
}

// Open returns a reader over the stored bytes.
func (s *Storage) Open(_ context.Context, key string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[key]
	if !ok {
		return nil, apperrors.NotFound("file", key)
	}
	return &storage.Object{
		Key:         key,
		Name:        entry.name,
		ContentType: entry.contentType,
		Size:        int64(len(entry.data)),
		Data:        io.NopCloser(bytes.NewReader(entry.data)),
	}, nil
}

// Delete removes a file.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

// Len returns the number of stored files.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
