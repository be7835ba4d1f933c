package backend

import (
	"net/http"

	"github.com/mediaplan/forecast-service/internal/cfg"
)

// Client обращается к внешним сервисам каталога аудиторий, реестра когорт, локаций и прогнозов.
type Client struct {
	http *http.Client
	cfg  *cfg.BackendCfg
}

func NewClient(cfg *cfg.BackendCfg) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}
