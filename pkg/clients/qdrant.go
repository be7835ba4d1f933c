package clients

import (
	"context"
	"fmt"

	"github.com/jimlawless/whereami"
	config "github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/qdrant/go-client/qdrant"
)

// Имена векторов точки сегмента аудитории.
const (
	VectorCombined    = "combined"
	VectorName        = "name"
	VectorDescription = "description"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

func (c *QdrantClient) CollectionName() string {
	return c.cfg.QdrantCollectionName
}

func (c *QdrantClient) Close() error {
	return c.Client.Close()
}

// EnsureCollection создаёт коллекцию с тремя именованными векторами размера из конфигурации.
func EnsureCollection(ctx context.Context, client *QdrantClient) error {
	exists, err := client.Client.CollectionExists(ctx, client.cfg.QdrantCollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := createCollection(ctx, client, client.cfg.VectorSize); err != nil {
			return err
		}
	}

	return nil
}

// RecreateCollection удаляет коллекцию вместе с точками и создаёт её заново с заданным размером векторов.
func RecreateCollection(ctx context.Context, client *QdrantClient, size uint64) error {
	exists, err := client.Client.CollectionExists(ctx, client.cfg.QdrantCollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		if err := client.Client.DeleteCollection(ctx, client.cfg.QdrantCollectionName); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	return createCollection(ctx, client, size)
}

func createCollection(ctx context.Context, client *QdrantClient, size uint64) error {
	params := func() *qdrant.VectorParams {
		return &qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}
	}

	if err := client.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: client.cfg.QdrantCollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorCombined:    params(),
			VectorName:        params(),
			VectorDescription: params(),
		}),
	}); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}
