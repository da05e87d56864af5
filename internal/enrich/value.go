// Package enrich runs the per-wine lookup orchestration, the wave
// scheduler, and the value-score computation.
package enrich

import (
	"math"

	"github.com/seb1936247/wine-value-finder/internal/model"
)

// MarkupPercent computes how far the menu price sits above retail, as a
// rounded percentage. Defined only for a positive retail price.
func MarkupPercent(menuPrice float64, retailAvg *float64) *int {
	if retailAvg == nil || *retailAvg <= 0 {
		return nil
	}
	return model.Ptr(int(math.Round(100 * (menuPrice - *retailAvg) / *retailAvg)))
}

// QualityScore blends critic and community scores (40/60) when both are
// present, passes through whichever single score exists, and is
// undefined with neither.
func QualityScore(critic, community *float64) *float64 {
	switch {
	case critic != nil && community != nil:
		return model.Ptr(0.4**critic + 0.6**community)
	case critic != nil:
		return critic
	case community != nil:
		return community
	default:
		return nil
	}
}

// ValueScore converts quality and markup ratio into a bounded 0-100
// bargain metric: lower markup and higher quality score higher. Defined
// only when both retail price and a quality score are defined.
func ValueScore(menuPrice float64, retailAvg *float64, critic, community *float64) *int {
	quality := QualityScore(critic, community)
	if retailAvg == nil || *retailAvg <= 0 || quality == nil || menuPrice <= 0 {
		return nil
	}
	ratio := menuPrice / *retailAvg
	score := int(math.Round(*quality / ratio))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return model.Ptr(score)
}

// Recompute derives markup, value score, and the lookup status
// classification from the wine's enrichment fields.
func Recompute(w *model.WineRecord) {
	e := &w.Enrichment
	e.MarkupPercent = MarkupPercent(w.MenuPrice, e.RetailPriceAvg)
	e.ValueScore = ValueScore(w.MenuPrice, e.RetailPriceAvg, e.CriticScore, e.CommunityScore)
	e.LookupStatus = Classify(*e)
}

// Classify derives the lookup status purely from which enrichment
// fields are populated: found needs a value score, partial needs any of
// price or scores, otherwise not_found.
func Classify(e model.Enrichment) model.LookupStatus {
	switch {
	case e.ValueScore != nil:
		return model.LookupStatusFound
	case e.RetailPriceAvg != nil || e.CriticScore != nil || e.CommunityScore != nil:
		return model.LookupStatusPartial
	default:
		return model.LookupStatusNotFound
	}
}
