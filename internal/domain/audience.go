package domain

// AudienceSegment описывает сегмент аудитории. Abvr — уникальный короткий код.
type AudienceSegment struct {
	Abvr        string
	Name        string
	Description string
}

func NewAudienceSegment(abvr, name, description string) *AudienceSegment {
	return &AudienceSegment{
		Abvr:        abvr,
		Name:        name,
		Description: description,
	}
}

// CatalogAudience приходит из каталога активных аудиторий до фильтрации.
type CatalogAudience struct {
	Name           string
	Description    string
	Abvr           string
	UniqueUsers30d int64
	AudiencePrefix string
}

// SimilarityBreakdown хранит взвешенные компоненты итоговой оценки.
type SimilarityBreakdown struct {
	Combined    float64
	Name        float64
	Description float64
}

// ScoredSegment — сегмент с оценкой близости к запросу.
type ScoredSegment struct {
	AudienceSegment
	Similarity float64
	Breakdown  SimilarityBreakdown
}
