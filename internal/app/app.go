package app

import (
	"context"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	config "github.com/mediaplan/forecast-service/internal/cfg"
	v1Http "github.com/mediaplan/forecast-service/internal/delivery/v1/http"
	"github.com/mediaplan/forecast-service/internal/infrastructure/backend"
	"github.com/mediaplan/forecast-service/internal/infrastructure/gemini"
	"github.com/mediaplan/forecast-service/internal/infrastructure/kafka"
	ml_service "github.com/mediaplan/forecast-service/internal/infrastructure/ml-service"
	"github.com/mediaplan/forecast-service/internal/infrastructure/scheduler"
	fileRepo "github.com/mediaplan/forecast-service/internal/repository/file"
	"github.com/mediaplan/forecast-service/internal/repository/memory"
	s3Repo "github.com/mediaplan/forecast-service/internal/repository/minio"
	"github.com/mediaplan/forecast-service/internal/repository/pgdb"
	qdrantRepo "github.com/mediaplan/forecast-service/internal/repository/qdrant"
	"github.com/mediaplan/forecast-service/internal/repository/redis"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/clients"
	"github.com/mediaplan/forecast-service/pkg/closer"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/mediaplan/forecast-service/pkg/postgres"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	closer    *closer.Closer
	httpSrv   *v1Http.Server
	scheduler *scheduler.Scheduler
	refreshUC *usecase.RefreshUseCase
}

// NewApp собирает зависимости сервиса. Redis, Postgres, Kafka и Gemini подключаются, только если настроены.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(0),
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if cerr := a.closer.Close(ctx); cerr != nil {
			logger.Warnf("cleanup after failed start: %v", cerr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg

	embedder := ml_service.NewEmbeddingService(cfg.Embedding, a.logger)
	a.logger.Infof("Embedding model %s at %s", cfg.Embedding.Model, cfg.Embedding.URL)
	backendClient := backend.NewClient(cfg.Backend)

	cacheStore, err := a.initCacheStore()
	if err != nil {
		return err
	}
	a.logCacheStatus(cacheStore)

	var (
		locationCache usecase.LocationCacheRepository
		refreshLock   usecase.RefreshLock
	)
	if cfg.Redis != nil {
		redisClient, err := a.initRedis()
		if err != nil {
			return err
		}
		locationCache = redis.NewLocationCacheRepo(redisClient, cfg.Redis, a.logger)
		refreshLock = redis.NewRefreshLock(redisClient, cfg.Redis.RefreshLockTTL)
	}

	var (
		taskRepo    usecase.RefreshTaskRepository = memory.NewRefreshTaskRepo()
		historyRepo usecase.ForecastHistoryRepository
		dbPool      transaction.Transactional
	)
	if cfg.Db != nil {
		db, err := initPGDB(a.logger, cfg)
		if err != nil {
			return err
		}
		a.closer.AddFunc("postgres", func() error {
			db.Close()
			return nil
		})
		taskRepo = pgdb.NewRefreshTaskRepo(db.Pool)
		historyRepo = pgdb.NewForecastHistoryRepo()
		dbPool = db.Pool
	}

	var publisher usecase.EventPublisher
	if cfg.Kafka != nil {
		producer := kafka.NewProducer(a.logger, cfg.Kafka)
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		if err := producer.EnsureTopic(ctx); err != nil {
			a.logger.Warnf("kafka topic %s is not ready: %v", cfg.Kafka.Topic, err)
		}
		cancel()
		a.closer.AddFunc("kafka", producer.Close)
		publisher = producer
	}

	var extractor usecase.CampaignExtractor
	if cfg.Gemini.ApiKey != "" {
		extractor = gemini.NewExtractor(gemini.NewClient(cfg.Gemini, a.logger))
	}

	index := usecase.NewSegmentIndex(cacheStore, embedder, a.logger)
	matcher := usecase.NewLocationGroupMatcher(embedder)
	workers := cfg.Workers.ForecastWorkers

	locationUC := usecase.NewLocationUC(backendClient, backendClient, matcher, locationCache, workers, a.logger)
	audienceUC := usecase.NewAudienceUC(backendClient, backendClient, index, embedder, extractor, cfg.Catalog, a.logger)
	forecastUC := usecase.NewForecastUC(backendClient, cfg.Catalog, historyRepo, dbPool, workers, a.logger)
	a.refreshUC = usecase.NewRefreshUC(backendClient, index, cfg.Catalog, taskRepo, refreshLock, publisher, a.logger)
	emailUC := usecase.NewEmailUC(extractor, backendClient, audienceUC, locationUC, cfg.Catalog, a.logger)

	a.scheduler = scheduler.NewScheduler(a.logger)
	if err := a.scheduler.AddRefreshJob(cfg.Workers.RefreshCron, a.refreshUC); err != nil {
		return err
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, a.logger).Init(&v1Http.UseCases{
		Audience:  audienceUC,
		Forecast:  forecastUC,
		Email:     emailUC,
		Refresh:   a.refreshUC,
		Scheduler: a.scheduler,
	}, cfg.Http.AllowedOrigins)

	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	return nil
}

// initCacheStore выбирает хранилище кэша эмбеддингов по EMBEDDING_CACHE_BACKEND.
func (a *App) initCacheStore() (usecase.EmbeddingCacheStore, error) {
	cfg := a.cfg

	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		return fileRepo.NewEmbeddingCacheStore(cfg.Cache.Path), nil

	case config.CacheBackendMinio:
		minioClient, err := clients.NewMinIOClient(cfg.Minio)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize minio client")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName); err != nil {
			a.logger.Errorf(err, "failed to initialize MinIO bucket")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		return s3Repo.NewEmbeddingCacheStore(minioClient, cfg.Minio, cfg.Cache.ObjectName), nil

	case config.CacheBackendQdrant:
		qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			a.logger.Errorf(err, "failed to initialize qdrant")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		a.closer.AddFunc("qdrant", qdrantClient.Close)

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := clients.EnsureCollection(ctx, qdrantClient); err != nil {
			a.logger.Errorf(err, "failed to initialize qdrant collection")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		return qdrantRepo.NewEmbeddingCacheStore(qdrantClient), nil

	default:
		return nil, e.Wrap(cfg.Cache.Backend, e.ErrUnknownCacheBackend)
	}
}

func (a *App) initRedis() (*clients.RedisClient, error) {
	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.AddFunc("redis", redisClient.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return redisClient, nil
}

func (a *App) logCacheStatus(store usecase.EmbeddingCacheStore) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	valid, message := store.CheckValidity(ctx)
	if valid {
		a.logger.Infof("Cache status: %s", message)
		return
	}
	a.logger.Warnf("Cache status: %s, embeddings will be computed on first request", message)
}

// Run запускает HTTP-сервер и планировщик и блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()
	a.httpSrv.Start(ctx)
	a.logger.Infof("HTTP server started on %s", a.httpSrv.Addr())

	var appErr error
	select {
	case appErr = <-a.httpSrv.Notify():
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.shutdown()
	return appErr
}

// shutdown останавливает приём запросов, затем планировщик, дожидается фонового обновления
// и закрывает ресурсы в обратном порядке.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Stop(ctx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Warnf("scheduler did not stop in time: %v", err)
	}

	if err := a.refreshUC.Wait(ctx); err != nil {
		a.logger.Warnf("embedding refresh did not finish before shutdown: %v", err)
	}

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Warnf("%v", err)
	}

	a.logger.Infof("Application shutdown complete")
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database %s at %s:%s", cfg.Db.DBName, cfg.Db.Host, cfg.Db.Port)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations from %s", cfg.Db.MigrationsPath)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
