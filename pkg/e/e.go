package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
	ErrUnknownCacheBackend  = fmt.Errorf("unknown embedding cache backend")

	// Внутренние ошибки с векторами
	ErrEmptyVectors           = fmt.Errorf("empty vectors")
	ErrEmbeddingCountMismatch = fmt.Errorf("embedding count mismatch")
	ErrDimensionMismatch      = fmt.Errorf("vector dimension mismatch")

	// Кэш эмбеддингов
	ErrCacheMiss      = fmt.Errorf("embedding cache miss")
	ErrCacheCorrupted = fmt.Errorf("embedding cache corrupted")

	// Внешние сервисы
	ErrBackendCall        = fmt.Errorf("backend call failed")
	ErrCatalogUnavailable = fmt.Errorf("audience catalog unavailable")
	ErrLocationUnresolved = fmt.Errorf("location unresolved")
	ErrExtractorDisabled  = fmt.Errorf("extraction service is not configured")

	// 400 Bad Request
	ErrStatusBadRequest      = fmt.Errorf("bad request")
	ErrExpectedMultipart     = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields         = fmt.Errorf("missing required fields")
	ErrFileTooLarge          = fmt.Errorf("file too large")
	ErrExtractionFailure     = fmt.Errorf("failed to extract campaign details")
	ErrInvalidCohort         = fmt.Errorf("invalid cohort")
	ErrNoAudiences           = fmt.Errorf("no audience abvrs provided")
	ErrNoPresets             = fmt.Errorf("no presets provided")
	ErrUnknownPreset         = fmt.Errorf("unknown preset")
	ErrUnknownCreativeSize   = fmt.Errorf("unknown creative size")
	ErrUnknownDeviceCategory = fmt.Errorf("unknown device category")
	ErrInvalidGender         = fmt.Errorf("invalid target gender")
	ErrInvalidDuration       = fmt.Errorf("duration must be positive")
	ErrAudienceNameRequired  = fmt.Errorf("audience name is required")

	// 404 Not Found
	ErrTaskNotFound = fmt.Errorf("refresh task not found")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
