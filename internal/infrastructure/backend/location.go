package backend

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/infrastructure"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// Lookup ищет локацию с точно совпадающим именем. Возвращает nil, nil, если совпадения нет.
func (c *Client) Lookup(ctx context.Context, name string) (*domain.Location, error) {
	var results []locationSearchJSON
	endpoint := c.cfg.LocationsURL + "/locations/search/" + url.PathEscape(name)
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	for _, r := range results {
		if r.Name == name {
			return toLocation(r), nil
		}
	}

	return nil, nil
}

// FetchGroups загружает именованные группы локаций, упорядоченные по имени.
func (c *Client) FetchGroups(ctx context.Context) ([]domain.LocationGroup, error) {
	var groups map[string]locationGroupJSON
	if err := infrastructure.DoJSON(ctx, c.http, http.MethodGet, c.cfg.LocationsURL+"/location-groups", nil, &groups); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make([]domain.LocationGroup, 0, len(groups))
	for name, g := range groups {
		result = append(result, domain.LocationGroup{
			Name:     name,
			Included: toLocations(g.IncludedLocations),
			Excluded: toLocations(g.ExcludedLocations),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func toLocation(r locationSearchJSON) *domain.Location {
	return domain.NewLocation(r.LocationID, r.Name, r.CountryCode, r.Type)
}

func toLocations(items []locationSearchJSON) []domain.Location {
	result := make([]domain.Location, 0, len(items))
	for _, item := range items {
		result = append(result, *toLocation(item))
	}
	return result
}
