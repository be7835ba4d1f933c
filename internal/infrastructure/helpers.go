package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/mediaplan/forecast-service/pkg/e"
)

// maxErrorBody ограничивает тело ответа, попадающее в текст ошибки.
const maxErrorBody = 512

// StatusError описывает ответ внешнего сервиса с кодом вне 2xx.
type StatusError struct {
	Code int
	Body string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", s.Code, s.Body)
}

// Retryable сообщает, имеет ли смысл повторить запрос.
func (s *StatusError) Retryable() bool {
	return s.Code == http.StatusTooManyRequests || s.Code >= http.StatusInternalServerError
}

// IsRetryable отделяет временные сбои (сеть, 429, 5xx) от ошибок запроса.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// DoJSON отправляет запрос с JSON-телом (если in != nil) и декодирует JSON-ответ в out.
// Любая ошибка оборачивается в e.ErrBackendCall.
func DoJSON(ctx context.Context, client *http.Client, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %w", e.ErrBackendCall, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: %w", e.ErrBackendCall, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", e.ErrBackendCall, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: %w", e.ErrBackendCall, method, req.URL.Path, &StatusError{
			Code: resp.StatusCode,
			Body: string(data),
		})
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %w", e.ErrBackendCall, method, req.URL.Path, err)
	}

	return nil
}
