package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// Веса стратегий построения вектора запроса: общая фраза, среднее по темам, расширенная фраза.
var QueryWeights = [3]float64{0.4, 0.3, 0.3}

// Понижающие коэффициенты сходства с эмбеддингами сегмента: общий, по имени, по описанию.
var SegmentSubWeights = [3]float64{1.0, 0.8, 0.9}

// Веса, с которыми скорректированные сходства входят в итоговую оценку.
var SegmentWeights = [3]float64{0.5, 0.25, 0.25}

const (
	// Сколько лучших сегментов рассматривается до отсечения по порогу.
	TopCandidates = 200
	// Итоговая оценка сегмента должна быть строго больше порога.
	SimilarityThreshold = 0.3
)

// SegmentTexts возвращает тексты, по которым строятся три эмбеддинга сегмента.
func SegmentTexts(segment domain.AudienceSegment) (combined, name, description string) {
	combined = fmt.Sprintf("Audience segment: %s. Description: %s", segment.Name, segment.Description)
	name = "Target audience: " + segment.Name
	description = "Audience characteristics: " + segment.Description
	return combined, name, description
}

func queryTexts(themes []string) (sentence, elaborated string) {
	sentence = "Audience targeting for: " + strings.Join(themes, " and ")
	elaborated = fmt.Sprintf("Target audience interested in %s with high purchase intent and premium preferences", strings.Join(themes, ", "))
	return sentence, elaborated
}

// EmbedQuery строит вектор запроса по темам таргетинга.
// Для пустого списка тем возвращает nil без ошибки.
func EmbedQuery(ctx context.Context, embedder Embedder, themes []string) ([]float64, error) {
	const op = "EmbedQuery"

	cleaned := make([]string, 0, len(themes))
	for _, theme := range themes {
		if theme = strings.TrimSpace(theme); theme != "" {
			cleaned = append(cleaned, theme)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	sentence, elaborated := queryTexts(cleaned)
	texts := make([]string, 0, len(cleaned)+2)
	texts = append(texts, sentence, elaborated)
	texts = append(texts, cleaned...)

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(vectors) != len(texts) {
		return nil, e.Wrap(op, e.ErrEmbeddingCountMismatch)
	}

	mean, err := weightedAverage(vectors[2:], nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := weightedAverage([][]float64{vectors[0], mean, vectors[1]}, QueryWeights[:])
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return query, nil
}

// RankSegments оценивает сегменты относительно запроса, сортирует по убыванию,
// оставляет TopCandidates лучших и отбрасывает оценки не выше SimilarityThreshold.
func RankSegments(query []float64, candidates []domain.SegmentEmbedding) []domain.ScoredSegment {
	scored := ScoreSegments(query, candidates)
	if len(scored) > TopCandidates {
		scored = scored[:TopCandidates]
	}

	result := make([]domain.ScoredSegment, 0, len(scored))
	for _, s := range scored {
		if s.Similarity > SimilarityThreshold {
			result = append(result, s)
		}
	}

	return result
}

// ScoreSegments оценивает все сегменты без отсечения и сортирует их по убыванию оценки.
func ScoreSegments(query []float64, candidates []domain.SegmentEmbedding) []domain.ScoredSegment {
	if query == nil || len(candidates) == 0 {
		return []domain.ScoredSegment{}
	}

	scored := make([]domain.ScoredSegment, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, scoreSegment(query, c))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	return scored
}

func scoreSegment(query []float64, c domain.SegmentEmbedding) domain.ScoredSegment {
	breakdown := domain.SimilarityBreakdown{
		Combined:    CosineSimilarity(query, c.Combined) * SegmentSubWeights[0],
		Name:        CosineSimilarity(query, c.Name) * SegmentSubWeights[1],
		Description: CosineSimilarity(query, c.Description) * SegmentSubWeights[2],
	}

	total := SegmentWeights[0] + SegmentWeights[1] + SegmentWeights[2]
	similarity := (breakdown.Combined*SegmentWeights[0] +
		breakdown.Name*SegmentWeights[1] +
		breakdown.Description*SegmentWeights[2]) / total

	return domain.ScoredSegment{
		AudienceSegment: c.Segment,
		Similarity:      similarity,
		Breakdown:       breakdown,
	}
}

// CosineSimilarity возвращает 0 для векторов разной длины или нулевой нормы.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// weightedAverage усредняет векторы с весами; nil-веса означают равные веса.
func weightedAverage(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, e.ErrEmptyVectors
	}
	if weights != nil && len(weights) != len(vectors) {
		return nil, e.ErrEmbeddingCountMismatch
	}

	dim := len(vectors[0])
	result := make([]float64, dim)
	var total float64
	for i, v := range vectors {
		if len(v) != dim {
			return nil, e.ErrDimensionMismatch
		}

		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		total += w

		for j := range v {
			result[j] += v[j] * w
		}
	}

	for j := range result {
		result[j] /= total
	}

	return result, nil
}
