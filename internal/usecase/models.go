package usecase

import (
	"time"

	"github.com/mediaplan/forecast-service/internal/domain"
)

// AUDIENCE USECASE

// GetAbvrsReq — запрос рекомендаций аудиторий по ключевым словам.
type GetAbvrsReq struct {
	Cohorts  []string
	Keywords []string
}

// CohortMatches — ранжированные аудитории одной когорты.
type CohortMatches struct {
	Cohort   string
	Segments []domain.ScoredSegment
}

// GetAbvrsRes содержит общие и внутрикогортные рекомендации.
// Selected и Left делят общий список по выбору сервиса извлечения.
type GetAbvrsRes struct {
	Keywords    []string
	CohortAbvrs []CohortMatches
	Selected    []domain.ScoredSegment
	Left        []domain.ScoredSegment
}

type AddCohortReq struct {
	Cohorts  []string
	Keywords []string
}

type FindByNameReq struct {
	Name     string
	Keywords []string
}

// LOCATION USECASE

type ResolveLocationsRes struct {
	Resolved []domain.LocationSelector
	NotFound []domain.UnresolvedLocation
}

// REFRESH USECASE

type TriggerStatus string

const (
	TriggerStarted        TriggerStatus = "started"
	TriggerAlreadyRunning TriggerStatus = "already_running"
)

type TriggerRefreshRes struct {
	Status  TriggerStatus
	TaskID  string
	Message string
}

// SCHEDULER

type ScheduledJob struct {
	ID          string
	Name        string
	NextRunTime *time.Time // nil, пока планировщик остановлен
	Trigger     string
}

type SchedulerStatusRes struct {
	Running bool
	Jobs    []ScheduledJob
}

// EMAIL USECASE

type ProcessEmailReq struct {
	Subject     string
	Body        string
	Attachments []domain.Attachment
}

type ProcessEmailRes struct {
	Cohorts           []string
	Locations         []domain.LocationSelector
	LocationsNotFound []domain.UnresolvedLocation
	Presets           []string
	CreativeSize      string
	DeviceCategory    string
	Duration          int
	TargetGender      string
	TargetAge         string
	Keywords          []string
	CohortAbvrs       []CohortMatches
	Abvrs             []domain.ScoredSegment
	LeftAbvrs         []domain.ScoredSegment
}

// INFRASTRUCTURE

// ForecastCallReq описывает один вызов бэкенда прогнозов.
type ForecastCallReq struct {
	Abvrs     string // коды аудиторий через запятую
	Included  []domain.Location
	Excluded  []domain.Location
	Preset    string
	Sizes     []domain.CreativeSize
	Devices   []domain.Device
	StartDate time.Time
	EndDate   time.Time
}

// ExtractCampaignReq — текст письма и допустимые значения полей кампании.
type ExtractCampaignReq struct {
	Subject          string
	Body             string
	Cohorts          []string
	Presets          []string
	CreativeSizes    []string
	DeviceCategories []string
	TargetAges       []string
	TargetGenders    []string
}

type ExtractLocationsReq struct {
	Subject string
	Body    string
}

// MAPPERS

func NewGetAbvrsReq(cohorts, keywords []string) *GetAbvrsReq {
	return &GetAbvrsReq{Cohorts: cohorts, Keywords: keywords}
}

func NewGetAbvrsRes(keywords []string, cohortAbvrs []CohortMatches, selected, left []domain.ScoredSegment) *GetAbvrsRes {
	return &GetAbvrsRes{
		Keywords:    keywords,
		CohortAbvrs: cohortAbvrs,
		Selected:    selected,
		Left:        left,
	}
}

func NewAddCohortReq(cohorts, keywords []string) *AddCohortReq {
	return &AddCohortReq{Cohorts: cohorts, Keywords: keywords}
}

func NewFindByNameReq(name string, keywords []string) *FindByNameReq {
	return &FindByNameReq{Name: name, Keywords: keywords}
}

func NewResolveLocationsRes(resolved []domain.LocationSelector, notFound []domain.UnresolvedLocation) *ResolveLocationsRes {
	return &ResolveLocationsRes{Resolved: resolved, NotFound: notFound}
}

func NewTriggerRefreshRes(status TriggerStatus, taskID, message string) *TriggerRefreshRes {
	return &TriggerRefreshRes{Status: status, TaskID: taskID, Message: message}
}

func NewProcessEmailReq(subject, body string, attachments []domain.Attachment) *ProcessEmailReq {
	return &ProcessEmailReq{Subject: subject, Body: body, Attachments: attachments}
}
