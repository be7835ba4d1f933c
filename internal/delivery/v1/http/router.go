package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

// Scheduler может быть nil.
type UseCases struct {
	Audience  usecase.AudienceUC
	Forecast  usecase.ForecastUC
	Email     usecase.EmailUC
	Refresh   usecase.RefreshUC
	Scheduler usecase.SchedulerUC
}

func (r *Router) Init(uc *UseCases, allowedOrigins []string) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)
	r.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	registerAudienceRoutes(r.router, NewAudienceHandler(uc.Audience, r.logger))
	registerForecastRoutes(r.router, NewForecastHandler(uc.Forecast, r.logger))
	registerEmailRoutes(r.router, NewEmailHandler(uc.Email, r.logger))
	registerRefreshRoutes(r.router, NewRefreshHandler(uc.Refresh, uc.Scheduler, r.logger))
}

func registerAudienceRoutes(router chi.Router, h *AudienceHandler) {
	router.Post("/get-abvrs-from-keywords", h.getAbvrsFromKeywords)
	router.Post("/add-cohort", h.addCohort)
	router.Post("/get-audience-segment-by-name", h.getSegmentByName)
}

func registerForecastRoutes(router chi.Router, h *ForecastHandler) {
	router.Post("/get-forecast", h.getForecast)
}

func registerEmailRoutes(router chi.Router, h *EmailHandler) {
	router.Post("/process-email", h.processEmail)
}

func registerRefreshRoutes(router chi.Router, h *RefreshHandler) {
	router.Get("/trigger-scheduled-refresh", h.triggerRefresh)
	router.Get("/refresh-status/{taskID}", h.refreshStatus)
	router.Get("/scheduler-status", h.schedulerStatus)
}
