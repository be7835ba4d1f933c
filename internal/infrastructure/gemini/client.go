package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/infrastructure"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/jitter"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

const (
	defaultMaxRetries = 3
	jsonMimeType      = "application/json"
	temperature       = 0.1
)

// Client вызывает generateContent модели Gemini и возвращает текст ответа.
type Client struct {
	http       *http.Client
	endpoint   string
	maxRetries int
	backoff    jitter.Backoff
	logger     logger.Logger
}

func NewClient(cfg *cfg.GeminiCfg, logger logger.Logger) *Client {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		cfg.BaseURL, url.PathEscape(cfg.Model), url.QueryEscape(cfg.ApiKey))

	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		endpoint:   endpoint,
		maxRetries: defaultMaxRetries,
		backoff:    jitter.NewBackoff(500*time.Millisecond, 30*time.Second),
		logger:     logger,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

// GenerateJSON отправляет промпт и возвращает текст первого кандидата без markdown-ограждений.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	const op = "Client.GenerateJSON"

	req := &generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: jsonMimeType,
			Temperature:      temperature,
		},
	}

	for attempt := 0; ; attempt++ {
		var res generateResponse
		err := infrastructure.DoJSON(ctx, c.http, http.MethodPost, c.endpoint, req, &res)
		if err == nil {
			return responseText(&res)
		}

		if !infrastructure.IsRetryable(err) || attempt == c.maxRetries-1 {
			return "", e.Wrap(op, err)
		}

		c.logger.Warnf("gemini call failed, retrying (attempt %d): %v", attempt+1, err)
		if err := c.backoff.Wait(ctx, attempt); err != nil {
			return "", e.Wrap(op, err)
		}
	}
}

func responseText(res *generateResponse) (string, error) {
	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		return "", e.Wrap("prompt blocked: "+res.PromptFeedback.BlockReason, e.ErrExtractionFailure)
	}
	if len(res.Candidates) == 0 {
		return "", e.Wrap("no candidates", e.ErrExtractionFailure)
	}

	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}

	return StripFences(b.String()), nil
}

// StripFences убирает markdown-ограждения ```json ... ``` вокруг ответа модели.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
