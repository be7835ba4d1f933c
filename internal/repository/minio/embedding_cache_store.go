package minio

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/repository/converter"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/minio/minio-go/v7"
)

const csvContentType = "text/csv"

// EmbeddingCacheStore хранит CSV-артефакт кэша эмбеддингов одним объектом в MinIO.
type EmbeddingCacheStore struct {
	mc         *minio.Client
	cfg        *cfg.MinIOCfg
	objectName string
}

func NewEmbeddingCacheStore(mc *minio.Client, cfg *cfg.MinIOCfg, objectName string) *EmbeddingCacheStore {
	return &EmbeddingCacheStore{
		mc:         mc,
		cfg:        cfg,
		objectName: objectName,
	}
}

func (s *EmbeddingCacheStore) Load(ctx context.Context) ([]domain.SegmentEmbedding, error) {
	data, err := s.download(ctx)
	if err != nil {
		return nil, err
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

// Save перезаписывает объект целиком. Запись объекта в MinIO атомарна для читателей.
func (s *EmbeddingCacheStore) Save(ctx context.Context, entries []domain.SegmentEmbedding) error {
	var buf bytes.Buffer
	if err := converter.EncodeCSV(&buf, entries); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	_, err := s.mc.PutObject(ctx, s.cfg.BucketName, s.objectName, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: csvContentType,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (s *EmbeddingCacheStore) CheckValidity(ctx context.Context) (bool, string) {
	data, err := s.download(ctx)
	if errors.Is(err, e.ErrCacheMiss) {
		return false, "Cache file does not exist"
	}
	if err != nil {
		return false, "Error reading cache: " + err.Error()
	}

	return converter.CheckCSV(bytes.NewReader(data))
}

// download читает объект целиком. Отсутствие бакета или объекта даёт e.ErrCacheMiss.
func (s *EmbeddingCacheStore) download(ctx context.Context) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, s.cfg.BucketName, s.objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(err)
	}

	return data, nil
}

func (s *EmbeddingCacheStore) mapError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return e.ErrCacheMiss
	}
	return e.Wrap(whereami.WhereAmI(), err)
}
