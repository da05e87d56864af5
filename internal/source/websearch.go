package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/normalize"
	"github.com/seb1936247/wine-value-finder/pkg/anthropic"
)

const webSearchSystemPrompt = `You are a wine pricing researcher. You verify retail prices and
critic scores for specific wines using web search.

Rules:
- The vintage must match EXACTLY. Data for a different vintage of the same
  wine is wrong data: report null instead of substituting it.
- Prices must be retail bottle prices in the requested currency. Ignore
  auction lots, cases, magnums, and en-primeur offers.
- Critic scores are on a 100-point scale. Community scores must be converted
  to a 100-point scale.
- Your final reply must be a single JSON object and nothing else. No prose,
  no explanation, no markdown fences.`

const webSearchAnswerShape = `{
  "retail_price_avg": number or null,
  "retail_price_min": number or null,
  "retail_price_max": number or null,
  "critic_score": number or null,
  "community_score": number or null,
  "community_review_count": number or null,
  "price_source_url": string or null,
  "community_source_url": string or null
}`

// defaultSearchBudget is the web-search tool budget per wine.
const defaultSearchBudget = 4

// searchAnswer is the wire shape the agent is asked to produce. Numeric
// fields use flexFloat so a garbled answer degrades field by field
// instead of failing the whole object.
type searchAnswer struct {
	RetailPriceAvg       flexFloat `json:"retail_price_avg"`
	RetailPriceMin       flexFloat `json:"retail_price_min"`
	RetailPriceMax       flexFloat `json:"retail_price_max"`
	CriticScore          flexFloat `json:"critic_score"`
	CommunityScore       flexFloat `json:"community_score"`
	CommunityReviewCount flexFloat `json:"community_review_count"`
	PriceSourceURL       string    `json:"price_source_url"`
	CommunitySourceURL   string    `json:"community_source_url"`
}

// WebSearch is the unstructured fallback source: an agent with a bounded
// web-search tool budget. It is strictly slower and costlier than the
// structured API and is only invoked when that source comes up short.
type WebSearch struct {
	client       anthropic.Client
	model        string
	toolBudget   int
	maxContinues int
	maxTokens    int64
}

var _ EnrichmentSource = (*WebSearch)(nil)

// NewWebSearch creates the web-search fallback source.
func NewWebSearch(client anthropic.Client, model string, toolBudget, maxContinues int) *WebSearch {
	if toolBudget <= 0 {
		toolBudget = defaultSearchBudget
	}
	return &WebSearch{
		client:       client,
		model:        model,
		toolBudget:   toolBudget,
		maxContinues: maxContinues,
		maxTokens:    2048,
	}
}

// Lookup researches one wine. All fields of the returned payload are
// nullable; any failure degrades to a null-filled payload.
func (s *WebSearch) Lookup(ctx context.Context, wine model.WineRecord, currency string) model.EnrichmentPayload {
	log := zap.L().With(
		zap.String("source", "web_search"),
		zap.String("wine", wine.Name),
	)

	req := anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    anthropic.CachedSystemBlocks(webSearchSystemPrompt),
		Tools: []anthropic.Tool{{
			Type:         "web_search",
			MaxUses:      s.toolBudget,
			UserLocation: LocaleForCurrency(currency),
		}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: buildSearchPrompt(wine, currency),
		}},
	}

	blocks, usage, err := runAgent(ctx, s.client, req, s.maxContinues)
	usage.LogCost(s.model, "web_search")
	if err != nil {
		log.Warn("web search agent failed", zap.Error(err))
		if len(blocks) == 0 {
			return model.EnrichmentPayload{Provenance: model.ProvenanceNone}
		}
		// Fall through: earlier turns may still hold a usable answer.
	}

	var answer searchAnswer
	if !salvageJSON(blocks, &answer) {
		log.Warn("web search produced no parseable answer", zap.Int("blocks", len(blocks)))
		return model.EnrichmentPayload{Provenance: model.ProvenanceNone}
	}

	payload := model.EnrichmentPayload{
		RetailPriceAvg:       positivePrice(answer.RetailPriceAvg.Float()),
		RetailPriceMin:       positivePrice(answer.RetailPriceMin.Float()),
		RetailPriceMax:       positivePrice(answer.RetailPriceMax.Float()),
		CriticScore:          clampScore(answer.CriticScore.Float()),
		CommunityScore:       clampScore(rescaleCommunity(answer.CommunityScore.Float())),
		CommunityReviewCount: answer.CommunityReviewCount.Int(),
		PriceSourceURL:       answer.PriceSourceURL,
		CommunitySourceURL:   answer.CommunitySourceURL,
		Provenance:           model.ProvenanceWebSearch,
	}
	if payload.Empty() {
		payload.Provenance = model.ProvenanceNone
	}
	return payload
}

func buildSearchPrompt(wine model.WineRecord, currency string) string {
	vintage := "NV (non-vintage)"
	if wine.Vintage != nil {
		vintage = fmt.Sprintf("%d", *wine.Vintage)
	}
	return fmt.Sprintf(`Find retail price and rating data for this wine:

Wine: %s
Producer: %s
Vintage: %s
Region: %s

Report prices in %s. Remember: wrong-vintage data is null, and your final
reply is exactly one JSON object of this shape:

%s`,
		normalize.SearchName(wine.Producer, wine.Name),
		wine.Producer,
		vintage,
		wine.Region,
		currency,
		webSearchAnswerShape,
	)
}

// clampScore bounds a 100-point score to [0, 100]; out-of-range garbage
// above 120 is discarded rather than clamped.
func clampScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 120 {
		return nil
	}
	if *v > 100 {
		return model.Ptr(100.0)
	}
	return v
}

// rescaleCommunity converts 5-point community ratings (e.g. 4.2) to the
// 100-point scale when the model forgets the conversion.
func rescaleCommunity(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v > 0 && *v <= 5 {
		return model.Ptr(*v * 20)
	}
	return v
}

// currencyLocales maps session currencies to an approximate requester
// location so search results price in the right market.
var currencyLocales = map[string]anthropic.UserLocation{
	"USD": {City: "New York", Region: "New York", Country: "US", Timezone: "America/New_York"},
	"EUR": {City: "Paris", Region: "Ile-de-France", Country: "FR", Timezone: "Europe/Paris"},
	"GBP": {City: "London", Region: "England", Country: "GB", Timezone: "Europe/London"},
	"CHF": {City: "Zurich", Region: "Zurich", Country: "CH", Timezone: "Europe/Zurich"},
	"CAD": {City: "Toronto", Region: "Ontario", Country: "CA", Timezone: "America/Toronto"},
	"AUD": {City: "Sydney", Region: "New South Wales", Country: "AU", Timezone: "Australia/Sydney"},
	"JPY": {City: "Tokyo", Region: "Tokyo", Country: "JP", Timezone: "Asia/Tokyo"},
}

// LocaleForCurrency returns the locale hint for a currency, nil when the
// currency has no mapping.
func LocaleForCurrency(currency string) *anthropic.UserLocation {
	loc, ok := currencyLocales[currency]
	if !ok {
		return nil
	}
	return &loc
}
