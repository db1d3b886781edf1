package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// FileStore keeps the collection as one JSON array file
type FileStore struct {
	path    string
	decoder Decoder
	mu      sync.Mutex
}

// NewFileStore creates a file store writing to path
func NewFileStore(path string, decoder Decoder) *FileStore {
	return &FileStore{path: path, decoder: decoder}
}

// Save writes the collection to a temporary file next to the target and
// renames it into place.
func (s *FileStore) Save(ctx context.Context, records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return harvesterrors.WrapIO("create dir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return harvesterrors.WrapIO("create temp file", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(model.EncodeRecords(records)); err != nil {
		_ = tmp.Close()
		cleanup()
		return harvesterrors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return harvesterrors.WrapIO("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return harvesterrors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return harvesterrors.WrapIO("chmod", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return harvesterrors.WrapIO("rename", s.path, err)
	}
	return nil
}

// Load reads the collection back
func (s *FileStore) Load(ctx context.Context) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", s.path, harvesterrors.ErrNotFound)
		}
		return nil, harvesterrors.WrapIO("read", s.path, err)
	}
	return s.decoder.Extract(data)
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
