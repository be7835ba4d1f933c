package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jimlawless/whereami"
	"github.com/joho/godotenv"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

const (
	CacheBackendFile   = "file"
	CacheBackendMinio  = "minio"
	CacheBackendQdrant = "qdrant"
)

type Config struct {
	Http      *HTTPConfig
	Backend   *BackendCfg
	Embedding *EmbeddingCfg
	Gemini    *GeminiCfg
	Cache     *EmbeddingCacheCfg
	Minio     *MinIOCfg
	Qdrant    *QdrantCfg
	Redis     *RedisCfg // nil, если REDIS_ADDR не задан
	Db        *PGDBCfg  // nil, если POSTGRES_DB не задан
	Kafka     *KafkaCfg // nil, если KAFKA_BROKERS не задан
	Workers   *WorkersCfg
	Catalog   *domain.MediaPlanCatalog
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// BackendCfg содержит адреса внешних сервисов.
type BackendCfg struct {
	AudienceURL  string
	LocationsURL string
	ProdURL      string
	Timeout      time.Duration
}

type EmbeddingCfg struct {
	URL           string
	Model         string
	MaxConcurrent int
	MaxRetries    int
	BatchSize     int
	Timeout       time.Duration
}

type GeminiCfg struct {
	ApiKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// EmbeddingCacheCfg выбирает хранилище кэша эмбеддингов аудиторий.
type EmbeddingCacheCfg struct {
	Backend    string
	Path       string // для file
	ObjectName string // для minio
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Название бакета с артефактом кэша
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Addr           string
	Password       string
	User           string
	DB             int
	MaxRetries     int
	DialTimeout    time.Duration
	Timeout        time.Duration
	LocationTTL    time.Duration
	RefreshLockTTL time.Duration
}

type PGDBCfg struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MigrationsPath string
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type WorkersCfg struct {
	ForecastWorkers int
	RefreshCron     string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf(".env not loaded: %v", err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	backend, err := loadBackendCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	embedding, err := loadEmbeddingCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	gemini, err := loadGeminiCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	cache, err := loadEmbeddingCacheCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	workers, err := loadWorkersCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	catalog, err := LoadCatalog(getEnv("MEDIAPLAN_CATALOG_PATH"))
	if err != nil {
		log.Errorf(err, "invalid media plan catalog")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:      http,
		Backend:   backend,
		Embedding: embedding,
		Gemini:    gemini,
		Cache:     cache,
		Minio:     minio,
		Qdrant:    qdrant,
		Redis:     redis,
		Db:        db,
		Kafka:     kafka,
		Workers:   workers,
		Catalog:   catalog,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 10 * time.Second
		defaultWriteTimeout = 120 * time.Second
		defaultIdleTimeout  = 60 * time.Second
		defaultOrigins      = "*"
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:           getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", defaultOrigins)),
	}, nil
}

func loadBackendCfg(log logger.Logger) (*BackendCfg, error) {
	const defaultTimeout = 60 * time.Second

	audienceURL := getEnv("AUDIENCE_API_URL")
	if audienceURL == "" {
		err := fmt.Errorf("AUDIENCE_API_URL is required")
		log.Errorf(err, "missing AUDIENCE_API_URL")
		return nil, err
	}

	locationsURL := getEnv("LOCATIONS_API_URL")
	if locationsURL == "" {
		err := fmt.Errorf("LOCATIONS_API_URL is required")
		log.Errorf(err, "missing LOCATIONS_API_URL")
		return nil, err
	}

	prodURL := getEnv("PROD_API_URL")
	if prodURL == "" {
		err := fmt.Errorf("PROD_API_URL is required")
		log.Errorf(err, "missing PROD_API_URL")
		return nil, err
	}

	timeout, err := parseDurationEnv("BACKEND_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid BACKEND_TIMEOUT")
		return nil, err
	}

	return &BackendCfg{
		AudienceURL:  strings.TrimRight(audienceURL, "/"),
		LocationsURL: strings.TrimRight(locationsURL, "/"),
		ProdURL:      strings.TrimRight(prodURL, "/"),
		Timeout:      timeout,
	}, nil
}

func loadEmbeddingCfg(log logger.Logger) (*EmbeddingCfg, error) {
	const (
		defaultURL           = "http://embeddings:8080"
		defaultModel         = "sentence-transformers/all-MiniLM-L6-v2"
		defaultMaxConcurrent = 4
		defaultMaxRetries    = 3
		defaultBatchSize     = 64
		defaultTimeout       = 30 * time.Second
	)

	maxConcurrent, err := parseIntEnv("EMBEDDING_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_MAX_CONCURRENT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("EMBEDDING_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_MAX_RETRIES")
		return nil, err
	}

	batchSize, err := parseIntEnv("EMBEDDING_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_BATCH_SIZE")
		return nil, err
	}

	timeout, err := parseDurationEnv("EMBEDDING_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_TIMEOUT")
		return nil, err
	}

	return &EmbeddingCfg{
		URL:           strings.TrimRight(getEnvOrDefault("EMBEDDING_URL", defaultURL), "/"),
		Model:         getEnvOrDefault("EMBEDDING_MODEL", defaultModel),
		MaxConcurrent: maxConcurrent,
		MaxRetries:    maxRetries,
		BatchSize:     batchSize,
		Timeout:       timeout,
	}, nil
}

func loadGeminiCfg(log logger.Logger) (*GeminiCfg, error) {
	const (
		defaultModel   = "gemini-2.0-flash"
		defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
		defaultTimeout = 120 * time.Second
	)

	timeout, err := parseDurationEnv("GEMINI_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid GEMINI_TIMEOUT")
		return nil, err
	}

	apiKey := getEnv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Warnf("GEMINI_API_KEY is not set, email processing is disabled")
	}

	return &GeminiCfg{
		ApiKey:  apiKey,
		Model:   getEnvOrDefault("GEMINI_MODEL", defaultModel),
		BaseURL: strings.TrimRight(getEnvOrDefault("GEMINI_BASE_URL", defaultBaseURL), "/"),
		Timeout: timeout,
	}, nil
}

func loadEmbeddingCacheCfg(log logger.Logger) (*EmbeddingCacheCfg, error) {
	const (
		defaultBackend = CacheBackendFile
		defaultPath    = "audience_embeddings.csv"
		defaultObject  = "audience_embeddings.csv"
	)

	backend := strings.ToLower(getEnvOrDefault("EMBEDDING_CACHE_BACKEND", defaultBackend))
	switch backend {
	case CacheBackendFile, CacheBackendMinio, CacheBackendQdrant:
	default:
		err := e.Wrap(backend, e.ErrUnknownCacheBackend)
		log.Errorf(err, "invalid EMBEDDING_CACHE_BACKEND")
		return nil, err
	}

	return &EmbeddingCacheCfg{
		Backend:    backend,
		Path:       getEnvOrDefault("EMBEDDING_CACHE_PATH", defaultPath),
		ObjectName: getEnvOrDefault("EMBEDDING_CACHE_OBJECT", defaultObject),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
		defaultBucket   = "mediaplan-cache"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadQdrantCfg(logger logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultVectorSize     = "384"
		defaultCollection     = "audience_embeddings"
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	strVectorSize := getEnvOrDefault("VECTOR_SIZE", defaultVectorSize)
	vectorSize, err := strconv.ParseUint(strVectorSize, 10, 64)
	if err != nil {
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 getEnvOrDefault("QDRANT_HOST", "qdrant"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           vectorSize,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB             = 0
		defaultMaxRetries     = 3
		defaultDialTimeout    = 5 * time.Second
		defaultReadTimeout    = 3 * time.Second
		defaultWriteTimeout   = 3 * time.Second
		defaultLocationTTL    = 24 * time.Hour
		defaultRefreshLockTTL = 2 * time.Hour
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetriesStr := getEnvOrDefault("MAX_RETRIES", strconv.Itoa(defaultMaxRetries))
	maxRetries, err := strconv.Atoi(maxRetriesStr)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	locationTTL, err := parseDurationEnv("LOCATION_TTL", defaultLocationTTL)
	if err != nil {
		log.Errorf(err, "invalid LOCATION_TTL")
		return nil, err
	}

	lockTTL, err := parseDurationEnv("REFRESH_LOCK_TTL", defaultRefreshLockTTL)
	if err != nil {
		log.Errorf(err, "invalid REFRESH_LOCK_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:           addr,
		Password:       getEnv("REDIS_PASSWORD"),
		User:           getEnv("REDIS_USER"),
		DB:             db,
		MaxRetries:     maxRetries,
		DialTimeout:    dialTimeout,
		Timeout:        timeout,
		LocationTTL:    locationTTL,
		RefreshLockTTL: lockTTL,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost           = "localhost"
		defaultPort           = "5432"
		defaultSSLMode        = "disable"
		defaultMaxConns       = 10
		defaultMigrationsPath = "db/migrations"
	)

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		return nil, nil
	}

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil || maxConns < 1 {
		err = fmt.Errorf("%w: POSTGRES_MAX_CONNS must be a positive integer", e.ErrIncorrectEnvVariable)
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, err
	}

	return &PGDBCfg{
		Host:           getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:           getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:           user,
		Password:       password,
		DBName:         dbName,
		SSLMode:        getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:       maxConns,
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 1
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "audience-embeddings-refresh"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, nil
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           splitList(brokerStr),
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadWorkersCfg() (*WorkersCfg, error) {
	const (
		defaultForecastWorkers = 4
		defaultRefreshCron     = "0 6 * * 0" // каждое воскресенье в 06:00
	)

	workers, err := parseIntEnv("FORECAST_WORKERS", defaultForecastWorkers)
	if err != nil {
		return nil, e.Wrap("FORECAST_WORKERS", err)
	}
	if workers < 1 {
		return nil, e.Wrap("FORECAST_WORKERS", e.ErrIncorrectEnvVariable)
	}

	return &WorkersCfg{
		ForecastWorkers: workers,
		RefreshCron:     getEnvOrDefault("REFRESH_CRON", defaultRefreshCron),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
