package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

type RefreshHandler struct {
	refreshUsecase usecase.RefreshUC
	scheduler      usecase.SchedulerUC
	logger         logger.Logger
}

func NewRefreshHandler(refreshUsecase usecase.RefreshUC, scheduler usecase.SchedulerUC, logger logger.Logger) *RefreshHandler {
	return &RefreshHandler{refreshUsecase: refreshUsecase, scheduler: scheduler, logger: logger}
}

func (h *RefreshHandler) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.refreshUsecase.TriggerRefresh(r.Context())
	if err != nil {
		h.logger.Errorf(err, "Failed to trigger embedding refresh")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromTriggerRes(res))
}

func (h *RefreshHandler) refreshStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := h.refreshUsecase.GetStatus(r.Context(), taskID)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromRefreshTask(task))
}

func (h *RefreshHandler) schedulerStatus(w http.ResponseWriter, _ *http.Request) {
	if h.scheduler == nil {
		WriteSuccess(w, http.StatusOK, &SchedulerStatusResponse{Jobs: []ScheduledJob{}})
		return
	}

	WriteSuccess(w, http.StatusOK, fromSchedulerStatus(h.scheduler.Status()))
}
