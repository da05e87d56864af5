package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/enrich"
	"github.com/seb1936247/wine-value-finder/internal/model"
)

var (
	lookupProducer string
	lookupVintage  int
	lookupPrice    float64
	lookupCurrency string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <wine name>",
	Short: "Enrich a single wine from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if lookupPrice <= 0 {
			return eris.New("--price must be positive")
		}

		env, err := initApp()
		if err != nil {
			return err
		}

		wine := model.WineRecord{
			Name:      args[0],
			Producer:  lookupProducer,
			MenuPrice: lookupPrice,
		}
		if lookupVintage > 0 {
			wine.Vintage = &lookupVintage
		}
		wine.ResetEnrichment()

		payload := env.Orchestrator.Enrich(ctx, wine, lookupCurrency)

		wine.Enrichment.RetailPriceAvg = payload.RetailPriceAvg
		wine.Enrichment.RetailPriceMin = payload.RetailPriceMin
		wine.Enrichment.CriticScore = payload.CriticScore
		wine.Enrichment.CommunityScore = payload.CommunityScore
		wine.Enrichment.CommunityReviewCount = payload.CommunityReviewCount
		wine.Enrichment.VerificationLinks.PriceSourceURL = payload.PriceSourceURL
		wine.Enrichment.VerificationLinks.CommunitySourceURL = payload.CommunitySourceURL
		wine.Enrichment.DataProvenance = payload.Provenance
		enrich.Recompute(&wine)

		zap.L().Info("lookup complete",
			zap.String("wine", wine.Name),
			zap.String("status", string(wine.Enrichment.LookupStatus)),
		)

		out, err := json.MarshalIndent(wine, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupProducer, "producer", "", "producer/estate name")
	lookupCmd.Flags().IntVar(&lookupVintage, "vintage", 0, "vintage year (omit for NV)")
	lookupCmd.Flags().Float64Var(&lookupPrice, "price", 0, "menu price (required)")
	lookupCmd.Flags().StringVar(&lookupCurrency, "currency", "EUR", "ISO currency code")
	_ = lookupCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(lookupCmd)
}
