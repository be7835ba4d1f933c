package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/infrastructure"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// FetchActiveAudiences загружает весь каталог активных аудиторий без фильтрации.
func (c *Client) FetchActiveAudiences(ctx context.Context) ([]domain.CatalogAudience, error) {
	var entries []catalogEntryJSON
	url := c.cfg.AudienceURL + "/getActiveAuds?text=&page_size=30000&offset=0"
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodGet, url, nil, &entries); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]domain.CatalogAudience, 0, len(entries))
	for _, entry := range entries {
		result = append(result, domain.CatalogAudience{
			Name:           entry.AudienceName,
			Description:    entry.Description,
			Abvr:           entry.Abvr,
			UniqueUsers30d: int64(entry.L30dUniques),
			AudiencePrefix: entry.AudiencePrefix,
		})
	}

	return result, nil
}

// FetchCohorts загружает реестр когорт медиапланов.
func (c *Client) FetchCohorts(ctx context.Context) ([]domain.Cohort, error) {
	var entries []cohortJSON
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodGet, c.cfg.ProdURL+"/get-all-mediaplan-cohorts", nil, &entries); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]domain.Cohort, 0, len(entries))
	for _, entry := range entries {
		result = append(result, *domain.NewCohort(entry.ID, entry.Name, splitAbvrs(entry.Abvrs)))
	}

	return result, nil
}

func splitAbvrs(raw string) []string {
	abvrs := make([]string, 0)
	for _, abvr := range strings.Split(raw, ",") {
		if abvr = strings.TrimSpace(abvr); abvr != "" {
			abvrs = append(abvrs, abvr)
		}
	}
	return abvrs
}
