package parse

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seb1936247/wine-value-finder/pkg/anthropic"
)

type fakeVision struct {
	resp    *anthropic.MessageResponse
	err     error
	lastReq anthropic.MessageRequest
}

func (f *fakeVision) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func visionResponse(stopReason, text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: stopReason,
	}
}

const extraction = `{
	"currency": "EUR",
	"wines": [
		{
			"name": "Cote-Rotie La Mouline",
			"producer": "Guigal",
			"vintage": 2018,
			"region": "Rhone",
			"grape_variety": "Syrah",
			"menu_price": 450,
			"raw_text": "Guigal, La Mouline '18 ... 450",
			"confidence": 0.95
		},
		{
			"name": "Champagne Grande Cuvee",
			"producer": "Krug",
			"vintage": null,
			"region": "Champagne",
			"grape_variety": "",
			"menu_price": 320,
			"raw_text": "Krug Grande Cuvee ... 320",
			"confidence": 0.9
		}
	]
}`

func TestParse(t *testing.T) {
	client := &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, extraction)}
	p := New(client, "test-vision-model")

	res, err := p.Parse(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "EUR", res.Currency)
	require.Len(t, res.Wines, 2)

	first := res.Wines[0]
	assert.Equal(t, "Cote-Rotie La Mouline", first.Name)
	assert.Equal(t, "Guigal", first.Producer)
	require.NotNil(t, first.Vintage)
	assert.Equal(t, 2018, *first.Vintage)
	assert.Equal(t, 450.0, first.MenuPrice)
	assert.Equal(t, 0.95, first.ExtractionConfidence)

	second := res.Wines[1]
	assert.Nil(t, second.Vintage, "NV wine keeps a nil vintage")

	// Every record starts unenriched.
	for _, w := range res.Wines {
		assert.Nil(t, w.Enrichment.ValueScore)
		assert.NotEqual(t, "", string(w.Enrichment.LookupStatus))
	}

	// The request carries the image ahead of the prompt.
	require.NotNil(t, client.lastReq.Messages[0].Image)
	assert.Equal(t, "image/jpeg", client.lastReq.Messages[0].Image.MediaType)
}

func TestParseFencedAnswer(t *testing.T) {
	client := &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, "```json\n"+extraction+"\n```")}
	p := New(client, "test-vision-model")

	res, err := p.Parse(context.Background(), []byte{1}, "image/png")
	require.NoError(t, err)
	assert.Len(t, res.Wines, 2)
}

func TestParseTruncatedAnswer(t *testing.T) {
	// Simulates a max_tokens cutoff mid-object: the second wine is
	// incomplete and must be dropped, keeping the first.
	truncated := `{
		"currency": "GBP",
		"wines": [
			{"name": "Barolo Monfortino", "producer": "Giacomo Conterno", "vintage": 2014, "menu_price": 900, "confidence": 0.9},
			{"name": "Chambertin", "producer": "Arman`
	client := &fakeVision{resp: visionResponse(anthropic.StopReasonMaxTokens, truncated)}
	p := New(client, "test-vision-model")

	res, err := p.Parse(context.Background(), []byte{1}, "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "GBP", res.Currency)
	require.Len(t, res.Wines, 1)
	assert.Equal(t, "Barolo Monfortino", res.Wines[0].Name)
}

func TestParseSkipsUnusableWines(t *testing.T) {
	doc := `{
		"currency": "EUR",
		"wines": [
			{"name": "Good Wine", "menu_price": 50},
			{"name": "", "menu_price": 60},
			{"name": "No Price", "menu_price": 0}
		]
	}`
	client := &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, doc)}
	p := New(client, "test-vision-model")

	res, err := p.Parse(context.Background(), []byte{1}, "image/jpeg")
	require.NoError(t, err)
	require.Len(t, res.Wines, 1)
	assert.Equal(t, "Good Wine", res.Wines[0].Name)
	assert.Equal(t, 0.5, res.Wines[0].ExtractionConfidence, "missing confidence defaults to 0.5")
}

func TestParseCurrencyFallback(t *testing.T) {
	doc := `{"currency": "euros", "wines": [{"name": "Wine", "menu_price": 10}]}`
	client := &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, doc)}
	p := New(client, "test-vision-model")

	res, err := p.Parse(context.Background(), []byte{1}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Currency, "unrecognized currency codes default to EUR")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		client    *fakeVision
		mediaType string
		wantErr   string
	}{
		{
			name:      "unsupported_media_type",
			client:    &fakeVision{},
			mediaType: "application/pdf",
			wantErr:   "unsupported media type",
		},
		{
			name:      "vision_request_fails",
			client:    &fakeVision{err: eris.New("api unavailable")},
			mediaType: "image/jpeg",
			wantErr:   "vision request",
		},
		{
			name:      "unparseable_answer",
			client:    &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, "I see a wine list.")},
			mediaType: "image/jpeg",
			wantErr:   "unparseable extraction",
		},
		{
			name:      "zero_wines",
			client:    &fakeVision{resp: visionResponse(anthropic.StopReasonEndTurn, `{"currency": "EUR", "wines": []}`)},
			mediaType: "image/jpeg",
			wantErr:   "no wines extracted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.client, "test-vision-model")
			_, err := p.Parse(context.Background(), []byte{1}, tt.mediaType)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
