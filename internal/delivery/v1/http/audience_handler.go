package http

import (
	"net/http"

	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

type AudienceHandler struct {
	audienceUsecase usecase.AudienceUC
	logger          logger.Logger
}

func NewAudienceHandler(audienceUsecase usecase.AudienceUC, logger logger.Logger) *AudienceHandler {
	return &AudienceHandler{audienceUsecase: audienceUsecase, logger: logger}
}

// getAbvrsFromKeywords ранжирует аудитории по ключевым словам с учётом выбранных когорт.
func (a *AudienceHandler) getAbvrsFromKeywords(w http.ResponseWriter, r *http.Request) {
	var req KeywordsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := a.audienceUsecase.GetAbvrs(r.Context(), usecase.NewGetAbvrsReq(trimmed(req.Cohorts), req.Keywords))
	if err != nil {
		a.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromAbvrsRes(res))
}

func (a *AudienceHandler) addCohort(w http.ResponseWriter, r *http.Request) {
	var req KeywordsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	segments, err := a.audienceUsecase.AddCohort(r.Context(), usecase.NewAddCohortReq(trimmed(req.Cohorts), req.Keywords))
	if err != nil {
		a.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromSegments(segments, ""))
}

func (a *AudienceHandler) getSegmentByName(w http.ResponseWriter, r *http.Request) {
	var req AudienceSegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		a.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	segments, err := a.audienceUsecase.FindByName(r.Context(), usecase.NewFindByNameReq(req.Name, req.Keywords))
	if err != nil {
		a.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, fromSegments(segments, ""))
}
