package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jewelryThemes = []string{"diamond jewelry", "premium audience", "luxury shopping"}

func testCatalogEntries() []domain.CatalogAudience {
	return []domain.CatalogAudience{
		{Abvr: "jwl", Name: "Interest: Jewelry & Luxury Goods", Description: "People interested in diamond jewelry, luxury shopping and premium accessories", UniqueUsers30d: 10, AudiencePrefix: "Interest"},
		{Abvr: "aut", Name: "Interest: Automotive", Description: "People researching cars, motorbikes and vehicle servicing", UniqueUsers30d: 10, AudiencePrefix: "Interest"},
		{Abvr: "stu", Name: "Demographic: College Students", Description: "Young adults enrolled in colleges and universities", UniqueUsers30d: 10, AudiencePrefix: "Demographic"},
		{Abvr: "trv", Name: "In Market: Budget Travel", Description: "Users planning low cost trips and hostel stays", UniqueUsers30d: 10, AudiencePrefix: "In Market"},
		{Abvr: "gmr", Name: "Interest: Mobile Gaming", Description: "Players of casual and competitive mobile games", UniqueUsers30d: 10, AudiencePrefix: "Interest"},
		{Abvr: "grc", Name: "Interest: Grocery Delivery", Description: "Households ordering groceries online", UniqueUsers30d: 10, AudiencePrefix: "Interest"},
	}
}

func testCohorts() *fakeCohorts {
	return &fakeCohorts{cohorts: []domain.Cohort{
		*domain.NewCohort(1, "Luxury", []string{"jwl"}),
		*domain.NewCohort(2, "Travel", []string{"trv", "aut"}),
	}}
}

func newTestAudienceUC(catalog *fakeCatalog, extractor CampaignExtractor) *AudienceUseCase {
	emb := &bowEmbedder{}
	index := NewSegmentIndex(&memoryStore{}, emb, nopLogger())
	return NewAudienceUC(catalog, testCohorts(), index, emb, extractor, testMediaPlan(), nopLogger())
}

func abvrsOf(segments []domain.ScoredSegment) []string {
	result := make([]string, 0, len(segments))
	for _, s := range segments {
		result = append(result, s.Abvr)
	}
	return result
}

func TestFilterCatalog(t *testing.T) {
	entries := []domain.CatalogAudience{
		{Abvr: " ok1 ", Name: "Interest: Cricket", Description: "Fans", UniqueUsers30d: 5, AudiencePrefix: "Interest"},
		{Abvr: "zero", Name: "Interest: Chess", Description: "Players", UniqueUsers30d: 0, AudiencePrefix: "Interest"},
		{Abvr: "nodesc", Name: "Interest: Golf", Description: "", UniqueUsers30d: 5, AudiencePrefix: "Interest"},
		{Abvr: "custom", Name: "Custom: Golf", Description: "Golfers", UniqueUsers30d: 5, AudiencePrefix: "Custom"},
		{Abvr: "pets", Name: "Interest | Pets", Description: "Pet owners", UniqueUsers30d: 5, AudiencePrefix: "Custom"},
		{Abvr: "  ", Name: "Interest: Tennis", Description: "Players", UniqueUsers30d: 5, AudiencePrefix: "Interest"},
		{Abvr: "ok1", Name: "Interest: Cricket copy", Description: "Fans", UniqueUsers30d: 5, AudiencePrefix: "Interest"},
	}

	got := FilterCatalog(entries, testMediaPlan())

	assert.Equal(t, []domain.AudienceSegment{
		{Abvr: "ok1", Name: "Interest: Cricket", Description: "Fans"},
		{Abvr: "pets", Name: "Interest | Pets", Description: "Pet owners"},
	}, got)
}

func TestGetAbvrs_SeparatesCohortSegments(t *testing.T) {
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, nil)

	res, err := uc.GetAbvrs(context.Background(), NewGetAbvrsReq([]string{"Luxury"}, jewelryThemes))
	require.NoError(t, err)

	require.Len(t, res.CohortAbvrs, 1)
	assert.Equal(t, "Luxury", res.CohortAbvrs[0].Cohort)
	assert.Equal(t, []string{"jwl"}, abvrsOf(res.CohortAbvrs[0].Segments))

	assert.Equal(t, []string{"trv"}, abvrsOf(res.Selected))
	assert.Empty(t, res.Left)
	assert.Equal(t, jewelryThemes, res.Keywords)
}

func TestGetAbvrs_ShortlistSplit(t *testing.T) {
	extractor := &fakeExtractor{selected: []string{"In Market: Budget Travel", "Invented audience"}}
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, extractor)

	res, err := uc.GetAbvrs(context.Background(), NewGetAbvrsReq(nil, jewelryThemes))
	require.NoError(t, err)

	assert.Equal(t, []string{"trv"}, abvrsOf(res.Selected))
	assert.Equal(t, []string{"jwl"}, abvrsOf(res.Left))
}

func TestGetAbvrs_ShortlistFailureSelectsAll(t *testing.T) {
	extractor := &fakeExtractor{selectErr: errors.New("model overloaded")}
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, extractor)

	res, err := uc.GetAbvrs(context.Background(), NewGetAbvrsReq(nil, jewelryThemes))
	require.NoError(t, err)

	assert.Equal(t, []string{"jwl", "trv"}, abvrsOf(res.Selected))
	assert.Empty(t, res.Left)
}

func TestGetAbvrs_EmptyKeywords(t *testing.T) {
	uc := newTestAudienceUC(&fakeCatalog{err: errors.New("must not be called")}, nil)

	res, err := uc.GetAbvrs(context.Background(), NewGetAbvrsReq([]string{"Luxury"}, []string{" "}))
	require.NoError(t, err)

	assert.Empty(t, res.Selected)
	assert.Empty(t, res.Left)
	assert.Empty(t, res.CohortAbvrs)
}

func TestGetAbvrs_Errors(t *testing.T) {
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, nil)
	_, err := uc.GetAbvrs(context.Background(), NewGetAbvrsReq([]string{"Unknown"}, jewelryThemes))
	assert.ErrorIs(t, err, e.ErrInvalidCohort)

	uc = newTestAudienceUC(&fakeCatalog{err: errors.New("timeout")}, nil)
	_, err = uc.GetAbvrs(context.Background(), NewGetAbvrsReq(nil, jewelryThemes))
	assert.ErrorIs(t, err, e.ErrCatalogUnavailable)
}

func TestAddCohort_RanksCohortSegments(t *testing.T) {
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, nil)

	got, err := uc.AddCohort(context.Background(), NewAddCohortReq([]string{"Luxury", "Travel"}, jewelryThemes))
	require.NoError(t, err)

	// aut ниже порога
	assert.Equal(t, []string{"jwl", "trv"}, abvrsOf(got))
}

func TestFindByName(t *testing.T) {
	uc := newTestAudienceUC(&fakeCatalog{entries: testCatalogEntries()}, nil)

	got, err := uc.FindByName(context.Background(), NewFindByNameReq("interest:", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"jwl", "aut", "gmr", "grc"}, abvrsOf(got))
	for _, s := range got {
		assert.Zero(t, s.Similarity)
	}

	got, err = uc.FindByName(context.Background(), NewFindByNameReq("INTEREST:", jewelryThemes))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "jwl", got[0].Abvr)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Similarity, got[i].Similarity)
	}

	_, err = uc.FindByName(context.Background(), NewFindByNameReq("  ", nil))
	assert.ErrorIs(t, err, e.ErrAudienceNameRequired)
}
