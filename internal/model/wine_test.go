package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWineRecordClone(t *testing.T) {
	w := WineRecord{
		Name:    "Barolo",
		Vintage: Ptr(2016),
	}
	w.Enrichment.RetailPriceAvg = Ptr(85.0)
	w.Enrichment.ValueScore = Ptr(70)

	c := w.Clone()
	*c.Vintage = 1999
	*c.Enrichment.RetailPriceAvg = 1
	*c.Enrichment.ValueScore = 0

	assert.Equal(t, 2016, *w.Vintage)
	assert.Equal(t, 85.0, *w.Enrichment.RetailPriceAvg)
	assert.Equal(t, 70, *w.Enrichment.ValueScore)
}

func TestSessionClone(t *testing.T) {
	s := &Session{
		ID:    "a",
		Wines: []WineRecord{{Name: "Barolo", Vintage: Ptr(2016)}},
	}

	c := s.Clone()
	c.Wines[0].Name = "changed"
	*c.Wines[0].Vintage = 1999

	assert.Equal(t, "Barolo", s.Wines[0].Name)
	assert.Equal(t, 2016, *s.Wines[0].Vintage)
}

func TestResetEnrichment(t *testing.T) {
	w := WineRecord{Name: "Barolo"}
	w.Enrichment.RetailPriceAvg = Ptr(85.0)
	w.Enrichment.LookupStatus = LookupStatusFound

	w.ResetEnrichment()

	assert.Nil(t, w.Enrichment.RetailPriceAvg)
	assert.Equal(t, LookupStatusPending, w.Enrichment.LookupStatus)
	assert.Equal(t, ProvenanceNone, w.Enrichment.DataProvenance)
}

func TestEnrichmentPayloadEmpty(t *testing.T) {
	assert.True(t, EnrichmentPayload{}.Empty())
	assert.True(t, EnrichmentPayload{PriceSourceURL: "https://example.com"}.Empty(),
		"a bare URL with no data fields is still empty")

	p := EnrichmentPayload{CommunityScore: Ptr(88.0)}
	require.False(t, p.Empty())
}
