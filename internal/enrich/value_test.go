package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seb1936247/wine-value-finder/internal/model"
)

func TestMarkupPercent(t *testing.T) {
	tests := []struct {
		name      string
		menuPrice float64
		retail    *float64
		want      *int
	}{
		{"fifty_percent", 450, model.Ptr(300.0), model.Ptr(50)},
		{"below_retail", 90, model.Ptr(100.0), model.Ptr(-10)},
		{"rounds_to_nearest", 100, model.Ptr(80.0), model.Ptr(25)},
		{"nil_retail", 450, nil, nil},
		{"zero_retail", 450, model.Ptr(0.0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkupPercent(tt.menuPrice, tt.retail))
		})
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name      string
		critic    *float64
		community *float64
		want      *float64
	}{
		{"both_weighted_40_60", model.Ptr(96.0), model.Ptr(92.0), model.Ptr(93.6)},
		{"critic_only", model.Ptr(96.0), nil, model.Ptr(96.0)},
		{"community_only", nil, model.Ptr(88.0), model.Ptr(88.0)},
		{"neither", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualityScore(tt.critic, tt.community)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestValueScore(t *testing.T) {
	tests := []struct {
		name      string
		menuPrice float64
		retail    *float64
		critic    *float64
		community *float64
		want      *int
	}{
		{
			// quality 93.6, ratio 1.5 => round(62.4) = 62
			name:      "worked_example",
			menuPrice: 450,
			retail:    model.Ptr(300.0),
			critic:    model.Ptr(96.0),
			community: model.Ptr(92.0),
			want:      model.Ptr(62),
		},
		{
			// priced below retail, capped at 100
			name:      "capped_at_100",
			menuPrice: 50,
			retail:    model.Ptr(200.0),
			critic:    model.Ptr(90.0),
			community: nil,
			want:      model.Ptr(100),
		},
		{
			name:      "no_retail_price",
			menuPrice: 450,
			retail:    nil,
			critic:    model.Ptr(96.0),
			community: model.Ptr(92.0),
			want:      nil,
		},
		{
			name:      "no_quality_score",
			menuPrice: 450,
			retail:    model.Ptr(300.0),
			critic:    nil,
			community: nil,
			want:      nil,
		},
		{
			name:      "zero_menu_price",
			menuPrice: 0,
			retail:    model.Ptr(300.0),
			critic:    model.Ptr(96.0),
			community: nil,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValueScore(tt.menuPrice, tt.retail, tt.critic, tt.community))
		})
	}
}

func TestValueScoreMonotonic(t *testing.T) {
	retail := model.Ptr(100.0)
	critic := model.Ptr(90.0)

	// Higher menu price (same quality) scores lower.
	cheap := ValueScore(110, retail, critic, nil)
	pricey := ValueScore(250, retail, critic, nil)
	require.NotNil(t, cheap)
	require.NotNil(t, pricey)
	assert.Greater(t, *cheap, *pricey)

	// Higher quality (same markup ratio) scores higher.
	better := ValueScore(250, retail, model.Ptr(98.0), nil)
	require.NotNil(t, better)
	assert.Greater(t, *better, *pricey)
}

func TestRecompute(t *testing.T) {
	w := model.WineRecord{
		Name:      "Cote-Rotie La Mouline",
		MenuPrice: 450,
	}
	w.ResetEnrichment()
	w.Enrichment.RetailPriceAvg = model.Ptr(300.0)
	w.Enrichment.CriticScore = model.Ptr(96.0)
	w.Enrichment.CommunityScore = model.Ptr(92.0)

	Recompute(&w)

	require.NotNil(t, w.Enrichment.MarkupPercent)
	assert.Equal(t, 50, *w.Enrichment.MarkupPercent)
	require.NotNil(t, w.Enrichment.ValueScore)
	assert.Equal(t, 62, *w.Enrichment.ValueScore)
	assert.Equal(t, model.LookupStatusFound, w.Enrichment.LookupStatus)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		e    model.Enrichment
		want model.LookupStatus
	}{
		{
			name: "value_score_means_found",
			e: model.Enrichment{
				RetailPriceAvg: model.Ptr(300.0),
				CriticScore:    model.Ptr(96.0),
				ValueScore:     model.Ptr(62),
			},
			want: model.LookupStatusFound,
		},
		{
			name: "price_without_scores_is_partial",
			e:    model.Enrichment{RetailPriceAvg: model.Ptr(300.0)},
			want: model.LookupStatusPartial,
		},
		{
			name: "score_without_price_is_partial",
			e:    model.Enrichment{CommunityScore: model.Ptr(88.0)},
			want: model.LookupStatusPartial,
		},
		{
			name: "nothing_is_not_found",
			e:    model.Enrichment{},
			want: model.LookupStatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.e))
		})
	}
}
