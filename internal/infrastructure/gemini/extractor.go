package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/e"
)

type generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Extractor извлекает параметры кампании, локации и ключевые слова из письма с помощью LLM.
type Extractor struct {
	llm generator
}

func NewExtractor(llm generator) *Extractor {
	return &Extractor{llm: llm}
}

// stringList принимает как JSON-массив строк, так и одиночную строку.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = splitList(one)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// flexInt принимает число или строку вида "30" / "30 days".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type campaignJSON struct {
	Cohort         stringList `json:"cohort"`
	Preset         stringList `json:"preset"`
	CreativeSize   string     `json:"creative_size"`
	DeviceCategory string     `json:"device_category"`
	TargetGender   string     `json:"target_gender"`
	TargetAge      stringList `json:"target_age"`
	Duration       flexInt    `json:"duration"`
}

type locationJSON struct {
	Included stringList `json:"includedLocations"`
	Excluded stringList `json:"excludedLocations"`
	NameAsID string     `json:"nameAsId"`
}

type locationsJSON struct {
	Locations []locationJSON `json:"locations"`
}

type keywordsJSON struct {
	RelevantEntries stringList `json:"relevant_entries"`
}

type audiencesJSON struct {
	Audiences stringList `json:"audiences"`
}

func (x *Extractor) ExtractCampaign(ctx context.Context, req *usecase.ExtractCampaignReq) (*domain.CampaignDraft, error) {
	const op = "Extractor.ExtractCampaign"

	var res campaignJSON
	if err := x.generate(ctx, campaignPrompt(req), &res); err != nil {
		return nil, e.Wrap(op, err)
	}

	if res.CreativeSize == "" || res.DeviceCategory == "" {
		return nil, e.Wrap(op, e.ErrExtractionFailure)
	}

	return &domain.CampaignDraft{
		Cohorts:        cleanList(res.Cohort),
		Presets:        cleanList(res.Preset),
		CreativeSize:   strings.TrimSpace(res.CreativeSize),
		DeviceCategory: strings.TrimSpace(res.DeviceCategory),
		TargetGender:   strings.TrimSpace(res.TargetGender),
		TargetAge:      strings.Join(cleanList(res.TargetAge), ","),
		Duration:       int(res.Duration),
	}, nil
}

func (x *Extractor) ExtractLocations(ctx context.Context, req *usecase.ExtractLocationsReq) ([]domain.LocationRequest, error) {
	const op = "Extractor.ExtractLocations"

	var res locationsJSON
	if err := x.generate(ctx, locationsPrompt(req), &res); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Селекторы без включений сохраняются: пустой означает «без ограничений»,
	// с одними исключениями разрешается как смешанный.
	out := make([]domain.LocationRequest, 0, len(res.Locations))
	for _, l := range res.Locations {
		out = append(out, domain.LocationRequest{
			Included: cleanList(l.Included),
			Excluded: cleanList(l.Excluded),
			NameAsID: strings.TrimSpace(l.NameAsID),
		})
	}

	return out, nil
}

func (x *Extractor) ExtractKeywords(ctx context.Context, subject, body string) ([]string, error) {
	const op = "Extractor.ExtractKeywords"

	var res keywordsJSON
	if err := x.generate(ctx, keywordsPrompt(subject, body), &res); err != nil {
		return nil, e.Wrap(op, err)
	}

	return cleanList(res.RelevantEntries), nil
}

// SelectAudiences оставляет только имена из переданного списка, сохраняя порядок модели.
func (x *Extractor) SelectAudiences(ctx context.Context, keywords []string, audienceNames []string) ([]string, error) {
	const op = "Extractor.SelectAudiences"

	var res audiencesJSON
	if err := x.generate(ctx, selectAudiencesPrompt(keywords, audienceNames), &res); err != nil {
		return nil, e.Wrap(op, err)
	}

	known := make(map[string]struct{}, len(audienceNames))
	for _, name := range audienceNames {
		known[name] = struct{}{}
	}

	selected := make([]string, 0, len(res.Audiences))
	seen := make(map[string]struct{}, len(res.Audiences))
	for _, name := range cleanList(res.Audiences) {
		if _, ok := known[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		selected = append(selected, name)
	}

	return selected, nil
}

func (x *Extractor) generate(ctx context.Context, prompt string, out any) error {
	text, err := x.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Wrap(err.Error(), e.ErrExtractionFailure))
	}

	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
