package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mediaplan/forecast-service/internal/cfg"
)

const readHeaderTimeout = 5 * time.Second

// Server оборачивает http.Server: Start не блокирует, ошибка прослушивания приходит в канал Notify.
type Server struct {
	httpServer *http.Server
	notify     chan error
}

func NewServer(handler http.Handler, cfg *cfg.HTTPConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		notify: make(chan error, 1),
	}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start запускает ListenAndServe в отдельной горутине.
// Запросы наследуют значения ctx, но не его отмену: незавершённые запросы дорабатывают до Stop.
// Штатная остановка через Stop в канал не попадает.
func (s *Server) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	s.httpServer.BaseContext = func(net.Listener) context.Context { return base }
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.notify <- err
		}
		close(s.notify)
	}()
}

func (s *Server) Notify() <-chan error {
	return s.notify
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
