package domain

// SegmentEmbedding — три эмбеддинга сегмента аудитории и текст, из которого построен основной.
type SegmentEmbedding struct {
	Segment      AudienceSegment
	CombinedText string
	Combined     []float64
	Name         []float64
	Description  []float64
}

func NewSegmentEmbedding(segment AudienceSegment, combinedText string, combined, name, description []float64) *SegmentEmbedding {
	return &SegmentEmbedding{
		Segment:      segment,
		CombinedText: combinedText,
		Combined:     combined,
		Name:         name,
		Description:  description,
	}
}
