package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/cache"
	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/source"
)

// Orchestrator runs the per-wine lookup strategy: structured price API
// and community score in parallel, web-search fallback when the
// structured source fails or returns insufficient data. A failure in
// one channel never blocks the other.
type Orchestrator struct {
	price     *source.PriceAPI
	search    source.EnrichmentSource
	community *source.Community
	cache     *cache.Cache
}

// NewOrchestrator wires the three lookup sources and the shared cache.
func NewOrchestrator(price *source.PriceAPI, search source.EnrichmentSource, community *source.Community, c *cache.Cache) *Orchestrator {
	return &Orchestrator{price: price, search: search, community: community, cache: c}
}

// Enrich produces the best-effort enrichment payload for one wine. It
// never returns an error; total failure is an empty payload with
// provenance none. Results are memoized in the shared cache.
func (o *Orchestrator) Enrich(ctx context.Context, wine model.WineRecord, currency string) model.EnrichmentPayload {
	log := zap.L().With(zap.String("wine", wine.Name))

	if cached, ok := o.cache.Get(wine, currency); ok {
		log.Debug("orchestrator: cache hit")
		return cached
	}

	// Price and community channels run concurrently; each contains its
	// own failures so one channel cannot poison the other.
	var (
		wg       sync.WaitGroup
		priceRes source.PriceResult
		commRes  source.CommunityResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverChannel(log, "price")
		priceRes = o.price.LookupPrice(ctx, wine, currency)
	}()
	go func() {
		defer wg.Done()
		defer recoverChannel(log, "community")
		commRes = o.community.LookupCommunity(ctx, wine)
	}()
	wg.Wait()

	payload := model.EnrichmentPayload{Provenance: model.ProvenanceNone}
	structuredHit := priceRes.Status == source.PriceStatusSuccess && priceRes.HasData()

	if structuredHit {
		payload.RetailPriceAvg = priceRes.RetailPriceAvg
		payload.RetailPriceMin = priceRes.RetailPriceMin
		payload.RetailPriceMax = priceRes.RetailPriceMax
		payload.CriticScore = priceRes.CriticScore
		payload.PriceSourceURL = priceRes.SourceURL
	} else {
		log.Info("orchestrator: falling back to web search",
			zap.String("price_status", string(priceRes.Status)),
		)
		fb := o.lookupFallback(ctx, log, wine, currency)
		payload.RetailPriceAvg = fb.RetailPriceAvg
		payload.RetailPriceMin = fb.RetailPriceMin
		payload.RetailPriceMax = fb.RetailPriceMax
		payload.CriticScore = fb.CriticScore
		payload.PriceSourceURL = fb.PriceSourceURL
		if !commRes.HasData() {
			// Community channel came up empty too; accept the
			// fallback's community fields.
			payload.CommunityScore = fb.CommunityScore
			payload.CommunityReviewCount = fb.CommunityReviewCount
			payload.CommunitySourceURL = fb.CommunitySourceURL
		}
	}

	if commRes.HasData() {
		payload.CommunityScore = commRes.Score
		payload.CommunityReviewCount = commRes.ReviewCount
		payload.CommunitySourceURL = commRes.SourceURL
	}

	payload.Provenance = provenanceFor(structuredHit, payload)

	o.cache.Set(wine, currency, payload)
	return payload
}

// lookupFallback invokes the web-search source with its own panic
// containment so a fallback crash still yields a null payload.
func (o *Orchestrator) lookupFallback(ctx context.Context, log *zap.Logger, wine model.WineRecord, currency string) (payload model.EnrichmentPayload) {
	defer recoverChannel(log, "web_search")
	payload.Provenance = model.ProvenanceNone
	payload = o.search.Lookup(ctx, wine, currency)
	return payload
}

// provenanceFor tags which channels contributed: api for structured
// only, web_search for fallback only, mixed when the structured price
// data is paired with an independently-sourced community score.
func provenanceFor(structuredHit bool, p model.EnrichmentPayload) model.Provenance {
	if p.Empty() {
		return model.ProvenanceNone
	}
	hasPriceData := p.RetailPriceAvg != nil || p.RetailPriceMin != nil || p.RetailPriceMax != nil || p.CriticScore != nil
	hasCommunity := p.CommunityScore != nil || p.CommunityReviewCount != nil

	switch {
	case structuredHit && hasCommunity:
		return model.ProvenanceMixed
	case structuredHit:
		return model.ProvenanceAPI
	case hasPriceData || hasCommunity:
		return model.ProvenanceWebSearch
	default:
		return model.ProvenanceNone
	}
}

func recoverChannel(log *zap.Logger, channel string) {
	if r := recover(); r != nil {
		log.Error("orchestrator: lookup channel panicked",
			zap.String("channel", channel),
			zap.Any("panic", r),
		)
	}
}
