package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

type EmailHandler struct {
	emailUsecase usecase.EmailUC
	logger       logger.Logger
}

func NewEmailHandler(emailUsecase usecase.EmailUC, logger logger.Logger) *EmailHandler {
	return &EmailHandler{emailUsecase: emailUsecase, logger: logger}
}

// processEmail принимает multipart-форму с полями subject, body и вложениями files.
func (m *EmailHandler) processEmail(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 60 << 20
		maxMemory           = 16 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		m.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	subject := strings.TrimSpace(r.FormValue("subject"))
	body := strings.TrimSpace(r.FormValue("body"))
	if subject == "" || body == "" {
		err := e.Wrap(fmt.Sprintf("subject: %q, body length: %d", subject, len(body)), e.ErrMissingFields)
		m.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	attachments, skipped, err := parseAttachments(r.MultipartForm.File["files"])
	if err != nil {
		m.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}
	if len(skipped) > 0 {
		m.logger.Infof("Skipped non-text attachments: %v", skipped)
	}

	m.logger.Infof("Processing email with subject: %s", subject)

	res, err := m.emailUsecase.ProcessEmail(r.Context(), usecase.NewProcessEmailReq(subject, body, attachments))
	if err != nil {
		m.logger.Errorf(err, "Error processing email")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromProcessEmailRes(res, skipped))
}
