package source

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/gate"
	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/normalize"
	"github.com/seb1936247/wine-value-finder/pkg/priceapi"
)

// PriceStatus is the typed outcome of a structured price lookup.
type PriceStatus string

const (
	PriceStatusSuccess     PriceStatus = "success"
	PriceStatusNoMatch     PriceStatus = "no_match"
	PriceStatusAmbiguous   PriceStatus = "ambiguous"
	PriceStatusRateLimited PriceStatus = "rate_limited"
	PriceStatusError       PriceStatus = "error"
)

// PriceResult is the normalized output of the structured price source.
type PriceResult struct {
	Status         PriceStatus
	RetailPriceAvg *float64
	RetailPriceMin *float64
	RetailPriceMax *float64
	CriticScore    *float64
	MatchedName    string
	SourceURL      string
}

// HasData reports whether the result carries price or critic data.
func (r PriceResult) HasData() bool {
	return r.RetailPriceAvg != nil || r.CriticScore != nil
}

// defaultPriceTimeout bounds a single structured API call. The API is
// the fast path; anything slower than this is treated as a failure.
const defaultPriceTimeout = 5 * time.Second

// PriceAPI is the structured price source. It consults the daily quota
// gate before every call and never retries internally; retry policy
// belongs to the scheduler.
type PriceAPI struct {
	client   priceapi.Client
	quota    *gate.DailyQuota
	interval *gate.Interval
	timeout  time.Duration
}

// NewPriceAPI creates the structured price source.
func NewPriceAPI(client priceapi.Client, quota *gate.DailyQuota, timeout time.Duration) *PriceAPI {
	if timeout <= 0 {
		timeout = defaultPriceTimeout
	}
	return &PriceAPI{client: client, quota: quota, timeout: timeout}
}

// WithInterval adds a minimum spacing between structured calls, on top
// of the daily quota.
func (s *PriceAPI) WithInterval(iv *gate.Interval) *PriceAPI {
	s.interval = iv
	return s
}

// LookupPrice queries the price API for one wine. All failure modes map
// to a typed status; it never returns an error.
func (s *PriceAPI) LookupPrice(ctx context.Context, wine model.WineRecord, currency string) PriceResult {
	log := zap.L().With(
		zap.String("source", "price_api"),
		zap.String("wine", wine.Name),
	)

	if !s.quota.TryAcquire() {
		log.Warn("price api daily quota exhausted")
		return PriceResult{Status: PriceStatusRateLimited}
	}
	if s.interval != nil {
		if err := s.interval.Wait(ctx); err != nil {
			return PriceResult{Status: PriceStatusError}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Search(ctx, priceapi.SearchRequest{
		Query:    normalize.SearchName(wine.Producer, wine.Name),
		Vintage:  wine.Vintage,
		Currency: currency,
	})
	if err != nil {
		log.Warn("price api request failed", zap.Error(err))
		return PriceResult{Status: PriceStatusError}
	}

	switch {
	case resp.HTTPStatus == http.StatusTooManyRequests:
		return PriceResult{Status: PriceStatusRateLimited}
	case resp.HTTPStatus == http.StatusNotFound:
		return PriceResult{Status: PriceStatusNoMatch}
	case resp.HTTPStatus != http.StatusOK:
		log.Warn("price api unexpected status", zap.Int("status", resp.HTTPStatus))
		return PriceResult{Status: PriceStatusError}
	}

	result := parsePriceResponse(resp.Body)
	if result.Status == PriceStatusError {
		log.Warn("price api unparseable response")
	}
	return result
}

// parsePriceResponse normalizes the provider's inconsistent response
// shapes. The payload may be a bare match object, a {"match": {...}}
// wrapper, or a {"results": [...]} list; field names vary in spelling
// and case between provider versions. Unknown shapes map to an error
// status, never a crash.
func parsePriceResponse(body json.RawMessage) PriceResult {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return PriceResult{Status: PriceStatusError}
	}
	fields := foldKeys(root)

	// List-shaped responses: no entries is a clean miss, more than one
	// entry without an exact flag is ambiguous.
	for _, key := range []string{"results", "matches", "wines"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return PriceResult{Status: PriceStatusError}
		}
		switch {
		case len(list) == 0:
			return PriceResult{Status: PriceStatusNoMatch}
		case len(list) == 1:
			return resultFromMatch(foldKeys(list[0]))
		default:
			first := foldKeys(list[0])
			if isExactMatch(first) {
				return resultFromMatch(first)
			}
			return PriceResult{Status: PriceStatusAmbiguous}
		}
	}

	// Wrapper-shaped responses.
	for _, key := range []string{"match", "wine", "result", "data"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if string(raw) == "null" {
			return PriceResult{Status: PriceStatusNoMatch}
		}
		var match map[string]json.RawMessage
		if err := json.Unmarshal(raw, &match); err != nil {
			return PriceResult{Status: PriceStatusError}
		}
		return resultFromMatch(foldKeys(match))
	}

	// Bare object: price fields at the top level.
	return resultFromMatch(fields)
}

// resultFromMatch extracts the typed price fields from a single
// case-folded match object.
func resultFromMatch(fields map[string]json.RawMessage) PriceResult {
	r := PriceResult{
		RetailPriceAvg: positivePrice(numField(fields, "price_average", "priceaverage", "average_price", "avg_price", "price_avg")),
		RetailPriceMin: positivePrice(numField(fields, "price_min", "pricemin", "min_price", "lowest_price")),
		RetailPriceMax: positivePrice(numField(fields, "price_max", "pricemax", "max_price", "highest_price")),
		CriticScore:    numField(fields, "critic_score", "criticscore", "score", "critics_score"),
		MatchedName:    strField(fields, "name", "wine_name", "winename", "matched_name", "display_name"),
		SourceURL:      strField(fields, "url", "link", "offer_url", "page_url"),
	}
	if !r.HasData() {
		// A match object with neither price nor critic data is a miss.
		return PriceResult{Status: PriceStatusNoMatch, MatchedName: r.MatchedName, SourceURL: r.SourceURL}
	}
	r.Status = PriceStatusSuccess
	return r
}

// foldKeys lowercases all keys so field-name case variants collapse.
func foldKeys(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func numField(fields map[string]json.RawMessage, keys ...string) *float64 {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var f flexFloat
		if err := json.Unmarshal(raw, &f); err == nil && f.Float() != nil {
			return f.Float()
		}
	}
	return nil
}

func strField(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func isExactMatch(fields map[string]json.RawMessage) bool {
	for _, k := range []string{"exact", "exact_match", "authoritative"} {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil && b {
			return true
		}
	}
	return false
}
