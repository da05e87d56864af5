package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/normalize"
	"github.com/seb1936247/wine-value-finder/pkg/anthropic"
)

// defaultCommunityDomain is the single ratings site the community source
// is allowed to consult.
const defaultCommunityDomain = "vivino.com"

// defaultCommunityBudget is the tighter tool budget for the community
// source; one search usually lands the wine page.
const defaultCommunityBudget = 2

const communitySystemPrompt = `You look up community wine ratings on exactly one site. Never use
any other site and never substitute a rating from a different vintage
or a different wine: null is the correct answer when the exact wine and
vintage are not rated there.

Community scores are converted to a 100-point scale (a 4.2/5 rating is 84).
Your final reply is a single JSON object, no prose, no markdown fences:
{
  "community_score": number or null,
  "community_review_count": number or null,
  "source_url": string or null
}`

// communityAnswer is the wire shape the community agent produces.
type communityAnswer struct {
	CommunityScore       flexFloat `json:"community_score"`
	CommunityReviewCount flexFloat `json:"community_review_count"`
	SourceURL            string    `json:"source_url"`
}

// CommunityResult is the narrow output of the community score source.
type CommunityResult struct {
	Score       *float64
	ReviewCount *int
	SourceURL   string
}

// HasData reports whether a community score was found.
func (r CommunityResult) HasData() bool {
	return r.Score != nil
}

// Community is the community-score source: a single-site agent lookup
// that runs independently of, and in parallel with, the price channels.
type Community struct {
	client       anthropic.Client
	model        string
	domain       string
	toolBudget   int
	maxContinues int
	maxTokens    int64
}

// NewCommunity creates the community score source. An empty domain falls
// back to the default ratings site.
func NewCommunity(client anthropic.Client, model, domain string, toolBudget, maxContinues int) *Community {
	if domain == "" {
		domain = defaultCommunityDomain
	}
	if toolBudget <= 0 {
		toolBudget = defaultCommunityBudget
	}
	return &Community{
		client:       client,
		model:        model,
		domain:       domain,
		toolBudget:   toolBudget,
		maxContinues: maxContinues,
		maxTokens:    1024,
	}
}

// LookupCommunity fetches the community score for one wine. Both fields
// are nullable; any failure degrades to an empty result.
func (s *Community) LookupCommunity(ctx context.Context, wine model.WineRecord) CommunityResult {
	log := zap.L().With(
		zap.String("source", "community"),
		zap.String("wine", wine.Name),
	)

	vintage := "NV (non-vintage)"
	if wine.Vintage != nil {
		vintage = fmt.Sprintf("%d", *wine.Vintage)
	}

	req := anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    anthropic.CachedSystemBlocks(communitySystemPrompt),
		Tools: []anthropic.Tool{{
			Type:           "web_search",
			MaxUses:        s.toolBudget,
			AllowedDomains: []string{s.domain},
		}},
		Messages: []anthropic.Message{{
			Role: "user",
			Content: fmt.Sprintf("Find the %s community rating for:\nWine: %s\nProducer: %s\nVintage: %s",
				s.domain,
				normalize.SearchName(wine.Producer, wine.Name),
				wine.Producer,
				vintage,
			),
		}},
	}

	blocks, usage, err := runAgent(ctx, s.client, req, s.maxContinues)
	usage.LogCost(s.model, "community")
	if err != nil && len(blocks) == 0 {
		log.Warn("community agent failed", zap.Error(err))
		return CommunityResult{}
	}

	var answer communityAnswer
	if !salvageJSON(blocks, &answer) {
		log.Debug("community lookup produced no parseable answer")
		return CommunityResult{}
	}

	return CommunityResult{
		Score:       clampScore(rescaleCommunity(answer.CommunityScore.Float())),
		ReviewCount: answer.CommunityReviewCount.Int(),
		SourceURL:   answer.SourceURL,
	}
}
