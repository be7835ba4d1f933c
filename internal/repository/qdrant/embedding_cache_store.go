package qdrant

import (
	"context"
	"fmt"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/clients"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/qdrant/go-client/qdrant"
)

const (
	upsertBatchSize = 256
	scrollPageSize  = 512

	payloadAbvr         = "abvr"
	payloadName         = "name"
	payloadDescription  = "description"
	payloadCombinedText = "combined_text"
)

// EmbeddingCacheStore хранит эмбеддинги сегментов точками Qdrant с тремя именованными векторами.
// Идентификаторы точек последовательны, порядок точек совпадает с порядком сохранения.
type EmbeddingCacheStore struct {
	client *clients.QdrantClient
}

func NewEmbeddingCacheStore(client *clients.QdrantClient) *EmbeddingCacheStore {
	return &EmbeddingCacheStore{client: client}
}

func (s *EmbeddingCacheStore) Load(ctx context.Context) ([]domain.SegmentEmbedding, error) {
	exists, err := s.client.Client.CollectionExists(ctx, s.client.CollectionName())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return nil, e.ErrCacheMiss
	}

	result := make([]domain.SegmentEmbedding, 0)
	var offset uint64
	for {
		points, err := s.client.Client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.client.CollectionName(),
			Offset:         qdrant.NewIDNum(offset),
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		for _, p := range points {
			entry, err := fromPoint(p)
			if err != nil {
				return nil, e.Wrap(whereami.WhereAmI(), err)
			}
			result = append(result, *entry)
		}

		if len(points) < scrollPageSize {
			break
		}
		offset = points[len(points)-1].GetId().GetNum() + 1
	}

	if len(result) == 0 {
		return nil, e.ErrCacheMiss
	}

	return result, nil
}

// Save пересоздаёт коллекцию и загружает точки пачками.
func (s *EmbeddingCacheStore) Save(ctx context.Context, entries []domain.SegmentEmbedding) error {
	var size uint64
	if len(entries) > 0 {
		size = uint64(len(entries[0].Combined))
	}
	if size == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrEmptyVectors)
	}

	if err := clients.RecreateCollection(ctx, s.client, size); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	wait := true
	for start := 0; start < len(entries); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, toPoint(uint64(i), &entries[i]))
		}

		if _, err := s.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.client.CollectionName(),
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	return nil
}

func (s *EmbeddingCacheStore) CheckValidity(ctx context.Context) (bool, string) {
	exists, err := s.client.Client.CollectionExists(ctx, s.client.CollectionName())
	if err != nil {
		return false, fmt.Sprintf("Error reading cache: %v", err)
	}
	if !exists {
		return false, "Cache collection does not exist"
	}

	count, err := s.client.Client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.client.CollectionName(),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return false, fmt.Sprintf("Error reading cache: %v", err)
	}
	if count == 0 {
		return false, "Cache collection is empty"
	}

	return true, fmt.Sprintf("Cache is valid with %d entries", count)
}

func toPoint(id uint64, entry *domain.SegmentEmbedding) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id: qdrant.NewIDNum(id),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			clients.VectorCombined:    qdrant.NewVector(toFloat32(entry.Combined)...),
			clients.VectorName:        qdrant.NewVector(toFloat32(entry.Name)...),
			clients.VectorDescription: qdrant.NewVector(toFloat32(entry.Description)...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadAbvr:         entry.Segment.Abvr,
			payloadName:         entry.Segment.Name,
			payloadDescription:  entry.Segment.Description,
			payloadCombinedText: entry.CombinedText,
		}),
	}
}

func fromPoint(p *qdrant.RetrievedPoint) (*domain.SegmentEmbedding, error) {
	vectors := p.GetVectors().GetVectors().GetVectors()

	combined, err := namedVector(vectors, clients.VectorCombined)
	if err != nil {
		return nil, err
	}
	name, err := namedVector(vectors, clients.VectorName)
	if err != nil {
		return nil, err
	}
	desc, err := namedVector(vectors, clients.VectorDescription)
	if err != nil {
		return nil, err
	}

	payload := p.GetPayload()
	abvr := payload[payloadAbvr].GetStringValue()
	if abvr == "" {
		return nil, e.Wrap(fmt.Sprintf("point %d has no abvr", p.GetId().GetNum()), e.ErrCacheCorrupted)
	}

	return domain.NewSegmentEmbedding(
		*domain.NewAudienceSegment(
			abvr,
			payload[payloadName].GetStringValue(),
			payload[payloadDescription].GetStringValue(),
		),
		payload[payloadCombinedText].GetStringValue(),
		combined,
		name,
		desc,
	), nil
}

func namedVector(vectors map[string]*qdrant.VectorOutput, name string) ([]float64, error) {
	v, ok := vectors[name]
	if !ok {
		return nil, e.Wrap(fmt.Sprintf("vector %q missing", name), e.ErrCacheCorrupted)
	}

	data := v.GetDense().GetData()
	if len(data) == 0 {
		data = v.GetData()
	}
	if len(data) == 0 {
		return nil, e.Wrap(fmt.Sprintf("vector %q empty", name), e.ErrCacheCorrupted)
	}

	return toFloat64(data), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
