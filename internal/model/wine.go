package model

// LookupStatus classifies how much enrichment data a wine ended up with.
type LookupStatus string

const (
	LookupStatusPending  LookupStatus = "pending"
	LookupStatusFound    LookupStatus = "found"
	LookupStatusPartial  LookupStatus = "partial"
	LookupStatusNotFound LookupStatus = "not_found"
	LookupStatusError    LookupStatus = "error"
)

// Provenance records which source(s) contributed a wine's enrichment data.
type Provenance string

const (
	ProvenanceAPI       Provenance = "api"
	ProvenanceWebSearch Provenance = "web_search"
	ProvenanceMixed     Provenance = "mixed"
	ProvenanceNone      Provenance = "none"
)

// WineRecord is a single wine parsed from an uploaded list. The
// (name, producer, vintage) triple is its identity and changes only
// through an explicit user edit, which also resets Enrichment.
type WineRecord struct {
	Name                 string  `json:"name"`
	Producer             string  `json:"producer"`
	Vintage              *int    `json:"vintage"`
	Region               string  `json:"region,omitempty"`
	GrapeVariety         string  `json:"grapeVariety,omitempty"`
	MenuPrice            float64 `json:"menuPrice"`
	RawText              string  `json:"rawText,omitempty"`
	ExtractionConfidence float64 `json:"extractionConfidence"`

	Enrichment Enrichment `json:"enrichment"`
}

// VerificationLinks point at the pages the enrichment data came from.
type VerificationLinks struct {
	PriceSourceURL     string `json:"priceSourceUrl,omitempty"`
	CommunitySourceURL string `json:"communitySourceUrl,omitempty"`
}

// Enrichment holds the best-effort external data attached to a wine.
// ValueScore is non-nil iff RetailPriceAvg is non-nil and at least one
// of CriticScore/CommunityScore is non-nil.
type Enrichment struct {
	RetailPriceAvg       *float64          `json:"retailPriceAvg"`
	RetailPriceMin       *float64          `json:"retailPriceMin"`
	CriticScore          *float64          `json:"criticScore"`
	CommunityScore       *float64          `json:"communityScore"`
	CommunityReviewCount *int              `json:"communityReviewCount"`
	LookupStatus         LookupStatus      `json:"lookupStatus"`
	VerificationLinks    VerificationLinks `json:"verificationLinks"`
	MarkupPercent        *int              `json:"markupPercent"`
	ValueScore           *int              `json:"valueScore"`
	DataProvenance       Provenance        `json:"dataProvenance"`
}

// EnrichmentPayload is what a lookup source produces for one wine. All
// fields are nullable; a failed lookup is an all-null payload, not an error.
type EnrichmentPayload struct {
	RetailPriceAvg       *float64   `json:"retailPriceAvg"`
	RetailPriceMin       *float64   `json:"retailPriceMin"`
	RetailPriceMax       *float64   `json:"retailPriceMax"`
	CriticScore          *float64   `json:"criticScore"`
	CommunityScore       *float64   `json:"communityScore"`
	CommunityReviewCount *int       `json:"communityReviewCount"`
	PriceSourceURL       string     `json:"priceSourceUrl,omitempty"`
	CommunitySourceURL   string     `json:"communitySourceUrl,omitempty"`
	Provenance           Provenance `json:"provenance"`
}

// Empty reports whether the payload carries no data at all.
func (p EnrichmentPayload) Empty() bool {
	return p.RetailPriceAvg == nil && p.RetailPriceMin == nil && p.RetailPriceMax == nil &&
		p.CriticScore == nil && p.CommunityScore == nil && p.CommunityReviewCount == nil
}

// ResetEnrichment clears all enrichment fields back to the unenriched
// state. Called when a wine is edited.
func (w *WineRecord) ResetEnrichment() {
	w.Enrichment = Enrichment{
		LookupStatus:   LookupStatusPending,
		DataProvenance: ProvenanceNone,
	}
}

// Clone returns a deep copy of the wine record.
func (w WineRecord) Clone() WineRecord {
	c := w
	c.Vintage = clonePtr(w.Vintage)
	c.Enrichment = w.Enrichment.Clone()
	return c
}

// Clone returns a deep copy of the enrichment.
func (e Enrichment) Clone() Enrichment {
	c := e
	c.RetailPriceAvg = clonePtr(e.RetailPriceAvg)
	c.RetailPriceMin = clonePtr(e.RetailPriceMin)
	c.CriticScore = clonePtr(e.CriticScore)
	c.CommunityScore = clonePtr(e.CommunityScore)
	c.CommunityReviewCount = clonePtr(e.CommunityReviewCount)
	c.MarkupPercent = clonePtr(e.MarkupPercent)
	c.ValueScore = clonePtr(e.ValueScore)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Convenience for building payloads.
func Ptr[T any](v T) *T {
	return &v
}
