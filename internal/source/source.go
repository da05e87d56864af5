// Package source implements the enrichment lookup strategies: the
// structured price API, the web-search agent fallback, and the
// community-score agent. All strategies share one contract — a lookup
// degrades to a null-filled result on failure, it never propagates an
// error out of the source.
package source

import (
	"context"

	"github.com/seb1936247/wine-value-finder/internal/model"
)

// EnrichmentSource is the common lookup contract. Implementations must
// be safe for concurrent use; failures are expressed as empty payloads.
type EnrichmentSource interface {
	Lookup(ctx context.Context, wine model.WineRecord, currency string) model.EnrichmentPayload
}
