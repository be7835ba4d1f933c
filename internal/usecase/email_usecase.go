package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

const attachmentsHeader = "--- ATTACHMENT CONTENTS ---"

// EmailUseCase превращает письмо с брифом в черновик медиаплана.
type EmailUseCase struct {
	extractor CampaignExtractor
	cohorts   CohortRegistry
	audiences AudienceUC
	locations LocationUC
	mediaPlan *domain.MediaPlanCatalog
	logger    logger.Logger
}

func NewEmailUC(
	extractor CampaignExtractor,
	cohorts CohortRegistry,
	audiences AudienceUC,
	locations LocationUC,
	mediaPlan *domain.MediaPlanCatalog,
	logger logger.Logger,
) *EmailUseCase {
	return &EmailUseCase{
		extractor: extractor,
		cohorts:   cohorts,
		audiences: audiences,
		locations: locations,
		mediaPlan: mediaPlan,
		logger:    logger,
	}
}

// ProcessEmail извлекает параметры кампании, разрешает локации и подбирает аудитории.
// Неизвестная когорта отклоняет весь запрос.
func (m *EmailUseCase) ProcessEmail(ctx context.Context, req *ProcessEmailReq) (*ProcessEmailRes, error) {
	const op = "EmailUseCase.ProcessEmail"

	if m.extractor == nil {
		return nil, e.Wrap(op, e.ErrExtractorDisabled)
	}

	content := CombineEmailContent(req.Body, req.Attachments)

	registry, err := m.cohorts.FetchCohorts(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	known := make(map[string]struct{}, len(registry))
	cohortNames := make([]string, 0, len(registry))
	for _, c := range registry {
		known[c.Name] = struct{}{}
		cohortNames = append(cohortNames, c.Name)
	}

	draft, err := m.extractor.ExtractCampaign(ctx, &ExtractCampaignReq{
		Subject:          req.Subject,
		Body:             content,
		Cohorts:          cohortNames,
		Presets:          m.mediaPlan.PresetCodes(),
		CreativeSizes:    sortedKeys(m.mediaPlan.CreativeSizes),
		DeviceCategories: sortedKeys(m.mediaPlan.DeviceCategories),
		TargetAges:       m.mediaPlan.TargetAges,
		TargetGenders:    m.mediaPlan.TargetGenders,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	for _, cohort := range draft.Cohorts {
		if _, ok := known[cohort]; !ok {
			return nil, e.Wrap(op, e.Wrap(cohort, e.ErrInvalidCohort))
		}
	}

	if err := m.validateDraft(draft); err != nil {
		return nil, e.Wrap(op, err)
	}

	requests, err := m.extractor.ExtractLocations(ctx, &ExtractLocationsReq{Subject: req.Subject, Body: content})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	locations, err := m.locations.Resolve(ctx, requests)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	keywords, err := m.extractor.ExtractKeywords(ctx, req.Subject, req.Body)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(cleanKeywords(keywords)) == 0 {
		return nil, e.Wrap(op, e.Wrap("no keywords extracted", e.ErrExtractionFailure))
	}

	audiences, err := m.audiences.GetAbvrs(ctx, NewGetAbvrsReq(draft.Cohorts, keywords))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &ProcessEmailRes{
		Cohorts:           draft.Cohorts,
		Locations:         locations.Resolved,
		LocationsNotFound: locations.NotFound,
		Presets:           draft.Presets,
		CreativeSize:      draft.CreativeSize,
		DeviceCategory:    draft.DeviceCategory,
		Duration:          draft.Duration,
		TargetGender:      draft.TargetGender,
		TargetAge:         draft.TargetAge,
		Keywords:          audiences.Keywords,
		CohortAbvrs:       audiences.CohortAbvrs,
		Abvrs:             audiences.Selected,
		LeftAbvrs:         audiences.Left,
	}, nil
}

// validateDraft проверяет, что значения, выбранные моделью, есть в справочнике медиаплана.
func (m *EmailUseCase) validateDraft(draft *domain.CampaignDraft) error {
	for _, preset := range draft.Presets {
		if _, ok := m.mediaPlan.PresetLabel(preset); !ok {
			return e.Wrap(fmt.Sprintf("preset %q", preset), e.ErrExtractionFailure)
		}
	}

	if _, ok := m.mediaPlan.Sizes(draft.CreativeSize); !ok {
		return e.Wrap(fmt.Sprintf("creative size %q", draft.CreativeSize), e.ErrExtractionFailure)
	}

	if _, ok := m.mediaPlan.Devices(draft.DeviceCategory); !ok {
		return e.Wrap(fmt.Sprintf("device category %q", draft.DeviceCategory), e.ErrExtractionFailure)
	}

	if _, err := GenderFactor(draft.TargetGender); err != nil {
		return e.Wrap(fmt.Sprintf("target gender %q", draft.TargetGender), e.ErrExtractionFailure)
	}

	if draft.Duration <= 0 {
		return e.Wrap(fmt.Sprintf("duration %d", draft.Duration), e.ErrExtractionFailure)
	}

	return nil
}

// CombineEmailContent дописывает к телу письма тексты вложений.
func CombineEmailContent(body string, attachments []domain.Attachment) string {
	if len(attachments) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n" + attachmentsHeader + "\n")
	for _, a := range attachments {
		fmt.Fprintf(&b, "\nFile: %s\n", a.Filename)
		fmt.Fprintf(&b, "Type: %s\n", a.FileType)
		fmt.Fprintf(&b, "Content:\n%s\n", a.ExtractedText)
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
