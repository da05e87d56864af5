// Package parse turns an uploaded wine-list image into structured wine
// records using the vision model. It is the external-capability side of
// the pipeline: extraction may be low-confidence or truncated, and the
// rest of the system tolerates that.
package parse

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/pkg/anthropic"
)

const parsePrompt = `Extract every wine on this restaurant wine list.

Return a single JSON object, no prose, no markdown fences:
{
  "currency": "ISO 4217 code of the listed prices",
  "wines": [
    {
      "name": "wine name as printed",
      "producer": "producer/estate, empty string if not printed",
      "vintage": year number or null for NV,
      "region": "appellation or region, empty string if unknown",
      "grape_variety": "variety, empty string if unknown",
      "menu_price": number,
      "raw_text": "the original line",
      "confidence": 0.0 to 1.0
    }
  ]
}

Skip wines without a legible price. Do not invent data for unreadable
lines; lower the confidence instead.`

// supportedMediaTypes are the upload formats the vision model accepts.
var supportedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Result is the outcome of parsing one document.
type Result struct {
	Currency string
	Wines    []model.WineRecord
}

// Parser extracts wine records from uploaded images.
type Parser struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a document parser using the given vision model.
func New(client anthropic.Client, visionModel string) *Parser {
	return &Parser{client: client, model: visionModel, maxTokens: 8192}
}

// parsedWine is the wire shape of one extracted wine.
type parsedWine struct {
	Name         string   `json:"name"`
	Producer     string   `json:"producer"`
	Vintage      *int     `json:"vintage"`
	Region       string   `json:"region"`
	GrapeVariety string   `json:"grape_variety"`
	MenuPrice    float64  `json:"menu_price"`
	RawText      string   `json:"raw_text"`
	Confidence   *float64 `json:"confidence"`
}

type parsedDocument struct {
	Currency string       `json:"currency"`
	Wines    []parsedWine `json:"wines"`
}

// Parse extracts the wine records from one uploaded image. A truncated
// model response is salvaged into a partial wine list rather than
// failing; an unsupported media type or an answer with no usable wines
// is an error.
func (p *Parser) Parse(ctx context.Context, data []byte, mediaType string) (*Result, error) {
	if !supportedMediaTypes[mediaType] {
		return nil, eris.Errorf("parse: unsupported media type %q", mediaType)
	}

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: parsePrompt,
			Image:   &anthropic.ImageBlock{MediaType: mediaType, Data: data},
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "parse: vision request")
	}
	resp.Usage.LogCost(p.model, "parse")

	doc, err := decodeDocument(resp.Text())
	if err != nil {
		return nil, err
	}
	if resp.StopReason == anthropic.StopReasonMaxTokens {
		zap.L().Warn("parse: extraction truncated, keeping partial wine list",
			zap.Int("wines", len(doc.Wines)),
		)
	}

	result := &Result{Currency: normalizeCurrency(doc.Currency)}
	for _, w := range doc.Wines {
		if w.MenuPrice <= 0 || strings.TrimSpace(w.Name) == "" {
			continue
		}
		confidence := 0.5
		if w.Confidence != nil {
			confidence = *w.Confidence
		}
		rec := model.WineRecord{
			Name:                 strings.TrimSpace(w.Name),
			Producer:             strings.TrimSpace(w.Producer),
			Vintage:              w.Vintage,
			Region:               strings.TrimSpace(w.Region),
			GrapeVariety:         strings.TrimSpace(w.GrapeVariety),
			MenuPrice:            w.MenuPrice,
			RawText:              w.RawText,
			ExtractionConfidence: confidence,
		}
		rec.ResetEnrichment()
		result.Wines = append(result.Wines, rec)
	}

	if len(result.Wines) == 0 {
		return nil, eris.New("parse: no wines extracted from document")
	}
	return result, nil
}

// decodeDocument parses the model's answer, repairing a truncated wine
// array when the output was cut off mid-object.
func decodeDocument(text string) (*parsedDocument, error) {
	cleaned := cleanJSON(text)

	var doc parsedDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err == nil {
		return &doc, nil
	}

	repaired := repairTruncated(cleaned)
	if repaired != "" {
		if err := json.Unmarshal([]byte(repaired), &doc); err == nil {
			return &doc, nil
		}
	}
	return nil, eris.New("parse: unparseable extraction output")
}

// repairTruncated cuts a truncated document back to the last complete
// wine object and closes the array and object brackets.
func repairTruncated(text string) string {
	idx := strings.LastIndex(text, "}")
	if idx < 0 {
		return ""
	}
	return text[:idx+1] + "]}"
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping. Localized from
// internal/source/salvage.go.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// normalizeCurrency validates the extracted currency against ISO 4217,
// defaulting to EUR when the model's answer is not a real code.
func normalizeCurrency(code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "EUR"
	}
	return unit.String()
}
