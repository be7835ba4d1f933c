package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// Ошибки валидации входных данных, отдаются как 400.
var badRequestErrors = []error{
	e.ErrStatusBadRequest,
	e.ErrExpectedMultipart,
	e.ErrMissingFields,
	e.ErrFileTooLarge,
	e.ErrExtractionFailure,
	e.ErrInvalidCohort,
	e.ErrNoAudiences,
	e.ErrNoPresets,
	e.ErrUnknownPreset,
	e.ErrUnknownCreativeSize,
	e.ErrUnknownDeviceCategory,
	e.ErrInvalidGender,
	e.ErrInvalidDuration,
	e.ErrAudienceNameRequired,
}

func ToHTTPResponse(err error) (int, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}

	switch {
	case errors.Is(err, e.ErrTaskNotFound):
		return http.StatusNotFound, e.ErrTaskNotFound.Error()
	case errors.Is(err, e.ErrCatalogUnavailable):
		return http.StatusBadGateway, e.ErrCatalogUnavailable.Error()
	case errors.Is(err, e.ErrBackendCall):
		return http.StatusBadGateway, e.ErrBackendCall.Error()
	case errors.Is(err, e.ErrExtractorDisabled):
		return http.StatusServiceUnavailable, e.ErrExtractorDisabled.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst, отвергая лишние данные после объекта.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	}
	if dec.More() {
		return e.Wrap("trailing data after JSON body", e.ErrStatusBadRequest)
	}
	return nil
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	}
	return nil
}

// parseAttachments читает текстовые вложения. Бинарные файлы пропускаются.
func parseAttachments(files []*multipart.FileHeader) ([]domain.Attachment, []string, error) {
	const (
		maxAttachmentCount = 10
		maxFileSize        = 5 << 20
	)

	if len(files) > maxAttachmentCount {
		return nil, nil, e.Wrap("too many attachments", e.ErrStatusBadRequest)
	}

	attachments := make([]domain.Attachment, 0, len(files))
	skipped := make([]string, 0)
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}

		data, mimeType, err := readFile(fh, maxFileSize)
		if err != nil {
			return nil, nil, err
		}
		if !isPlainText(data, mimeType) {
			skipped = append(skipped, fh.Filename)
			continue
		}

		attachments = append(attachments, domain.Attachment{
			Filename:      fh.Filename,
			FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), "."),
			ExtractedText: string(data),
		})
	}
	return attachments, skipped, nil
}

func isPlainText(data []byte, mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	return mimeType == "application/octet-stream" && utf8.Valid(data) && !strings.ContainsRune(string(data), 0)
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if fh.Size > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType := http.DetectContentType(data[:min(len(data), 512)])
	return data, mimeType, nil
}
