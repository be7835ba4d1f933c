package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/infrastructure"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/e"
)

const (
	lineItemPriority = 8
	dateLayout       = "02-01-2006 15:04:05"
)

// Forecast запрашивает суммарный прогноз по всем локациям запроса.
func (c *Client) Forecast(ctx context.Context, req *usecase.ForecastCallReq) (*domain.ForecastMetrics, error) {
	var res combinedForecastJSON
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodPost, c.forecastURL(false), toPayload(req), &res); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if res.CombinedResponse == nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: CombinedResponse missing", e.ErrBackendCall))
	}

	return &domain.ForecastMetrics{
		User: res.CombinedResponse.User,
		Impr: res.CombinedResponse.Impr,
	}, nil
}

// GeoWiseForecast запрашивает прогноз с разбивкой по локациям. Ключи ответа возвращаются как есть.
func (c *Client) GeoWiseForecast(ctx context.Context, req *usecase.ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
	var res map[string]metricsJSON
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodPost, c.forecastURL(true), toPayload(req), &res); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[string]domain.ForecastMetrics, len(res))
	for key, m := range res {
		result[key] = domain.ForecastMetrics{User: m.User, Impr: m.Impr}
	}

	return result, nil
}

func (c *Client) forecastURL(geoWise bool) string {
	// бэкенд ожидает значение в стиле True/False
	flag := "False"
	if geoWise {
		flag = "True"
	}
	return c.cfg.ProdURL + "/forecast?geoWiseResponse=" + flag
}

func toPayload(req *usecase.ForecastCallReq) *forecastPayload {
	sizes := make([][2]int, 0, len(req.Sizes))
	for _, s := range req.Sizes {
		sizes = append(sizes, [2]int(s))
	}

	devices := make([]deviceJSON, 0, len(req.Devices))
	for _, d := range req.Devices {
		devices = append(devices, deviceJSON{Name: d.Name, ID: d.ID})
	}

	return &forecastPayload{
		LineItemPriorityValue: lineItemPriority,
		CreativeSize:          sizes,
		InventoryPresets:      req.Preset,
		DeviceCategory:        devices,
		IncludedLocations:     toRefs(req.Included),
		ExcludedLocations:     toRefs(req.Excluded),
		Abvr:                  req.Abvrs,
		StartDate:             req.StartDate.Format(dateLayout),
		EndDate:               req.EndDate.Format(dateLayout),
	}
}

func toRefs(locations []domain.Location) []locationRefJSON {
	refs := make([]locationRefJSON, 0, len(locations))
	for _, l := range locations {
		refs = append(refs, locationRefJSON{Name: l.Name, ID: l.ID})
	}
	return refs
}
