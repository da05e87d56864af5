package main

import (
	"time"

	"github.com/seb1936247/wine-value-finder/internal/cache"
	"github.com/seb1936247/wine-value-finder/internal/enrich"
	"github.com/seb1936247/wine-value-finder/internal/gate"
	"github.com/seb1936247/wine-value-finder/internal/parse"
	"github.com/seb1936247/wine-value-finder/internal/session"
	"github.com/seb1936247/wine-value-finder/internal/source"
	anthropicpkg "github.com/seb1936247/wine-value-finder/pkg/anthropic"
	"github.com/seb1936247/wine-value-finder/pkg/priceapi"
)

// appEnv holds the wired clients, sources, and pipeline pieces shared
// by the serve and lookup commands.
type appEnv struct {
	Store        *session.Store
	Cache        *cache.Cache
	Orchestrator *enrich.Orchestrator
	Scheduler    *enrich.Scheduler
	Parser       *parse.Parser
}

// initApp builds every dependency from config.
func initApp() (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	priceOpts := []priceapi.Option{
		priceapi.WithTimeout(time.Duration(cfg.PriceAPI.TimeoutSecs) * time.Second),
	}
	if cfg.PriceAPI.BaseURL != "" {
		priceOpts = append(priceOpts, priceapi.WithBaseURL(cfg.PriceAPI.BaseURL))
	}
	priceClient := priceapi.NewClient(cfg.PriceAPI.Key, priceOpts...)

	quota := gate.NewDailyQuota(cfg.PriceAPI.DailyQuota)
	resultCache := cache.New(time.Duration(cfg.Lookup.CacheTTLHours) * time.Hour)

	priceSource := source.NewPriceAPI(priceClient, quota, time.Duration(cfg.PriceAPI.TimeoutSecs)*time.Second).
		WithInterval(gate.NewInterval(time.Duration(cfg.PriceAPI.MinIntervalMs) * time.Millisecond))
	searchSource := source.NewWebSearch(aiClient, cfg.Anthropic.SearchModel, cfg.Lookup.SearchToolBudget, cfg.Lookup.MaxContinuations)
	communitySource := source.NewCommunity(aiClient, cfg.Anthropic.SearchModel, cfg.Lookup.CommunityDomain, cfg.Lookup.CommunityBudget, cfg.Lookup.MaxContinuations)

	orch := enrich.NewOrchestrator(priceSource, searchSource, communitySource, resultCache)
	store := session.NewStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	sched := enrich.NewScheduler(orch, resultCache, store, cfg.Lookup.WaveSize)
	parser := parse.New(aiClient, cfg.Anthropic.VisionModel)

	return &appEnv{
		Store:        store,
		Cache:        resultCache,
		Orchestrator: orch,
		Scheduler:    sched,
		Parser:       parser,
	}, nil
}
