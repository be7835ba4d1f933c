package file

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/repository/converter"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// EmbeddingCacheStore хранит кэш эмбеддингов CSV-файлом на локальном диске.
type EmbeddingCacheStore struct {
	path string
}

func NewEmbeddingCacheStore(path string) *EmbeddingCacheStore {
	return &EmbeddingCacheStore{path: path}
}

func (s *EmbeddingCacheStore) Load(ctx context.Context) ([]domain.SegmentEmbedding, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, e.ErrCacheMiss
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, e.ErrCacheMiss
	}

	entries, err := converter.DecodeCSV(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(entries) == 0 {
		return nil, e.ErrCacheMiss
	}

	return entries, nil
}

// Save пишет артефакт во временный файл рядом с целевым и атомарно переименовывает его.
func (s *EmbeddingCacheStore) Save(ctx context.Context, entries []domain.SegmentEmbedding) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer os.Remove(tmp.Name())

	if err := converter.EncodeCSV(tmp, entries); err != nil {
		tmp.Close()
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := tmp.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (s *EmbeddingCacheStore) CheckValidity(ctx context.Context) (bool, string) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, "Cache file does not exist"
	}
	if err != nil {
		return false, "Error reading cache: " + err.Error()
	}
	defer f.Close()

	return converter.CheckCSV(f)
}
