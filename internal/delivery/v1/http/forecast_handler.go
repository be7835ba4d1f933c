package http

import (
	"net/http"

	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

type ForecastHandler struct {
	forecastUsecase usecase.ForecastUC
	logger          logger.Logger
}

func NewForecastHandler(forecastUsecase usecase.ForecastUC, logger logger.Logger) *ForecastHandler {
	return &ForecastHandler{forecastUsecase: forecastUsecase, logger: logger}
}

// getForecast возвращает охват и показы по пресетам и локациям.
func (f *ForecastHandler) getForecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := decodeJSON(r, &req); err != nil {
		f.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	f.logger.Infof("Processing forecast: %d abvrs, %d locations, presets %v", len(req.Abvrs), len(req.Locations), req.Preset)

	result, err := f.forecastUsecase.GetForecast(r.Context(), req.toParams())
	if err != nil {
		f.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromForecast(result))
}
