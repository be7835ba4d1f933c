package clients

import (
	"context"
	"fmt"

	"github.com/jimlawless/whereami"
	config "github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOClient подключается к хранилищу артефакта кэша эмбеддингов.
func NewMinIOClient(cfg *config.MinIOCfg) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" || cfg.BucketName == "" {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: MINIO_ENDPOINT and BUCKET_NAME are required", e.ErrIncorrectEnvVariable))
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

// EnsureBucket создаёт бакет, если его нет. Гонка с параллельным созданием не считается ошибкой.
func EnsureBucket(ctx context.Context, client *minio.Client, bucketName string) error {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
