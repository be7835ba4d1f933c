package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/usecase"
)

// REQUESTS

type KeywordsRequest struct {
	Keywords []string `json:"keywords"`
	Cohorts  []string `json:"cohorts"`
}

type AudienceSegmentRequest struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

type ForecastRequest struct {
	Preset         []string           `json:"preset"`
	CreativeSize   string             `json:"creative_size"`
	DeviceCategory string             `json:"device_category"`
	Duration       int                `json:"duration"`
	Locations      []LocationSelector `json:"locations"`
	Abvrs          []string           `json:"abvrs"`
	TargetGender   string             `json:"target_gender"`
	TargetAge      string             `json:"target_age"`
}

type Location struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

type LocationSelector struct {
	IncludedLocations []Location `json:"includedLocations"`
	ExcludedLocations []Location `json:"excludedLocations"`
	NameAsID          string     `json:"nameAsId"`
}

// UnresolvedSelector описывает селектор, который не удалось разрешить.
type UnresolvedSelector struct {
	IncludedLocations []string `json:"includedLocations"`
	ExcludedLocations []string `json:"excludedLocations"`
	NameAsID          string   `json:"nameAsId"`
}

// RESPONSES

type SimilarityBreakdown struct {
	Combined    float64 `json:"combined"`
	Name        float64 `json:"name"`
	Description float64 `json:"description"`
}

type Segment struct {
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Abvr                string              `json:"abvr"`
	Similarity          float64             `json:"similarity"`
	SimilarityBreakdown SimilarityBreakdown `json:"similarity_breakdown"`
	Cohort              string              `json:"cohort,omitempty"`
}

type AbvrsResponse struct {
	Keywords    []string  `json:"keywords"`
	CohortAbvrs []Segment `json:"cohort_abvrs"`
	Abvrs       []Segment `json:"abvrs"`
	LeftAbvrs   []Segment `json:"left_abvrs"`
}

type ForecastMetrics struct {
	User float64 `json:"user"`
	Impr float64 `json:"impr"`
}

type ProcessEmailResponse struct {
	Cohort            []string           `json:"cohort"`
	Locations         []LocationSelector `json:"locations"`
	LocationsNotFound []any              `json:"locations_not_found"`
	Preset            []string           `json:"preset"`
	CreativeSize      string             `json:"creative_size"`
	DeviceCategory    string             `json:"device_category"`
	Duration          string             `json:"duration"`
	TargetGender      string             `json:"target_gender"`
	TargetAge         string             `json:"target_age"`
	CohortAbvrs       []Segment          `json:"cohort_abvrs"`
	Abvrs             []Segment          `json:"abvrs"`
	LeftAbvrs         []Segment          `json:"left_abvrs"`
	Keywords          []string           `json:"keywords"`
	SkippedFiles      []string           `json:"skipped_files,omitempty"`
}

type TriggerRefreshResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	TaskID  string `json:"task_id,omitempty"`
}

type RefreshStatusResponse struct {
	TaskID       string     `json:"task_id"`
	Trigger      string     `json:"trigger"`
	Status       string     `json:"status"`
	SegmentCount int        `json:"segment_count"`
	Error        string     `json:"error,omitempty"`
	QueuedAt     time.Time  `json:"queued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
}

type ScheduledJob struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NextRunTime *time.Time `json:"next_run_time"`
	Trigger     string     `json:"trigger"`
}

type SchedulerStatusResponse struct {
	SchedulerRunning bool           `json:"scheduler_running"`
	Jobs             []ScheduledJob `json:"jobs"`
}

// MAPPERS

func toLocations(locs []Location) []domain.Location {
	out := make([]domain.Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, domain.Location{ID: l.ID, Name: l.Name})
	}
	return out
}

func fromLocations(locs []domain.Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, Location{Name: l.Name, ID: l.ID})
	}
	return out
}

func toSelectors(selectors []LocationSelector) []domain.LocationSelector {
	out := make([]domain.LocationSelector, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, domain.LocationSelector{
			Included: toLocations(s.IncludedLocations),
			Excluded: toLocations(s.ExcludedLocations),
			NameAsID: s.NameAsID,
		})
	}
	return out
}

func fromSelectors(selectors []domain.LocationSelector) []LocationSelector {
	out := make([]LocationSelector, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, LocationSelector{
			IncludedLocations: fromLocations(s.Included),
			ExcludedLocations: fromLocations(s.Excluded),
			NameAsID:          s.NameAsID,
		})
	}
	return out
}

// fromUnresolved отдаёт фразу строкой, а нераспознанный селектор объектом.
func fromUnresolved(items []domain.UnresolvedLocation) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if item.Selector == nil {
			out = append(out, item.Phrase)
			continue
		}
		out = append(out, UnresolvedSelector{
			IncludedLocations: nonNil(item.Selector.Included),
			ExcludedLocations: nonNil(item.Selector.Excluded),
			NameAsID:          item.Selector.NameAsID,
		})
	}
	return out
}

func (r *ForecastRequest) toParams() *domain.ForecastParams {
	return &domain.ForecastParams{
		Abvrs:          r.Abvrs,
		Locations:      toSelectors(r.Locations),
		Presets:        r.Preset,
		CreativeSize:   r.CreativeSize,
		DeviceCategory: r.DeviceCategory,
		Duration:       r.Duration,
		TargetGender:   r.TargetGender,
		TargetAge:      r.TargetAge,
	}
}

func fromForecast(result domain.ForecastResult) map[string]map[string]ForecastMetrics {
	out := make(map[string]map[string]ForecastMetrics, len(result))
	for preset, buckets := range result {
		pb := make(map[string]ForecastMetrics, len(buckets))
		for key, m := range buckets {
			pb[key] = ForecastMetrics{User: m.User, Impr: m.Impr}
		}
		out[preset] = pb
	}
	return out
}

func fromSegments(segments []domain.ScoredSegment, cohort string) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		out = append(out, Segment{
			Name:        s.Name,
			Description: s.Description,
			Abvr:        s.Abvr,
			Similarity:  s.Similarity,
			SimilarityBreakdown: SimilarityBreakdown{
				Combined:    s.Breakdown.Combined,
				Name:        s.Breakdown.Name,
				Description: s.Breakdown.Description,
			},
			Cohort: cohort,
		})
	}
	return out
}

// fromCohortMatches разворачивает сегменты когорт в один список, сохраняя порядок когорт.
func fromCohortMatches(matches []usecase.CohortMatches) []Segment {
	out := make([]Segment, 0)
	for _, m := range matches {
		out = append(out, fromSegments(m.Segments, m.Cohort)...)
	}
	return out
}

func fromAbvrsRes(res *usecase.GetAbvrsRes) *AbvrsResponse {
	return &AbvrsResponse{
		Keywords:    nonNil(res.Keywords),
		CohortAbvrs: fromCohortMatches(res.CohortAbvrs),
		Abvrs:       fromSegments(res.Selected, ""),
		LeftAbvrs:   fromSegments(res.Left, ""),
	}
}

func fromProcessEmailRes(res *usecase.ProcessEmailRes, skipped []string) *ProcessEmailResponse {
	return &ProcessEmailResponse{
		Cohort:            nonNil(res.Cohorts),
		Locations:         fromSelectors(res.Locations),
		LocationsNotFound: fromUnresolved(res.LocationsNotFound),
		Preset:            nonNil(res.Presets),
		CreativeSize:      res.CreativeSize,
		DeviceCategory:    res.DeviceCategory + " Devices",
		Duration:          fmt.Sprintf("%d Days", res.Duration),
		TargetGender:      res.TargetGender,
		TargetAge:         res.TargetAge,
		CohortAbvrs:       fromCohortMatches(res.CohortAbvrs),
		Abvrs:             fromSegments(res.Abvrs, ""),
		LeftAbvrs:         fromSegments(res.LeftAbvrs, ""),
		Keywords:          nonNil(res.Keywords),
		SkippedFiles:      skipped,
	}
}

func fromTriggerRes(res *usecase.TriggerRefreshRes) *TriggerRefreshResponse {
	out := &TriggerRefreshResponse{
		Message: res.Message,
		Status:  string(res.Status),
	}
	if res.Status == usecase.TriggerStarted {
		out.TaskID = res.TaskID
	}
	return out
}

func fromRefreshTask(task *domain.RefreshTask) *RefreshStatusResponse {
	out := &RefreshStatusResponse{
		TaskID:       task.ID,
		Trigger:      string(task.Trigger),
		Status:       string(task.Status),
		SegmentCount: task.SegmentCount,
		Error:        task.Error,
		QueuedAt:     task.QueuedAt,
		StartedAt:    task.StartedAt,
	}

	switch task.Status {
	case domain.RefreshCompleted:
		out.CompletedAt = task.FinishedAt
	case domain.RefreshFailed:
		out.FailedAt = task.FinishedAt
	}
	return out
}

func fromSchedulerStatus(res *usecase.SchedulerStatusRes) *SchedulerStatusResponse {
	jobs := make([]ScheduledJob, 0, len(res.Jobs))
	for _, j := range res.Jobs {
		jobs = append(jobs, ScheduledJob{
			ID:          j.ID,
			Name:        j.Name,
			NextRunTime: j.NextRunTime,
			Trigger:     j.Trigger,
		})
	}
	return &SchedulerStatusResponse{SchedulerRunning: res.Running, Jobs: jobs}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func trimmed(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
