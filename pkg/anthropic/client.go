package anthropic

import (
	"context"
	"encoding/base64"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Stop reasons surfaced to callers. PauseTurn means the server paused a
// long-running tool turn; resubmit the conversation (including the
// paused assistant turn) to let the model continue.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
	StopReasonPauseTurn = "pause_turn"
	StopReasonToolUse   = "tool_use"
)

// Client defines the Anthropic API operations used by the enrichment
// pipeline and the document parser.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Tools       []Tool
	Temperature *float64
}

// SystemBlock represents a system prompt block, optionally with cache control.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl configures prompt caching for a content block.
type CacheControl struct {
	TTL string // "5m" or "1h"
}

// CachedSystemBlocks constructs system content blocks with a cache
// breakpoint. The enrichment prompts are identical across every wine in
// a session, so caching the system prompt pays for itself after the
// first wine of a wave.
func CachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "1h",
			},
		},
	}
}

// Tool describes a server-side tool made available to the model. Only
// the web search tool is used here; MaxUses is the per-request tool
// budget and AllowedDomains restricts which sites the model may search.
type Tool struct {
	Type           string // "web_search"
	MaxUses        int
	AllowedDomains []string
	UserLocation   *UserLocation
}

// UserLocation is the approximate requester locale hint passed to the
// web search tool so results match the session's market.
type UserLocation struct {
	City     string
	Region   string
	Country  string
	Timezone string
}

// Message represents a single conversational message. Image attaches an
// image block ahead of the text content (used by the vision parser).
// Assistant turns produced by AssistantTurn carry their raw content so
// server tool blocks survive a pause_turn resubmission.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
	Image   *ImageBlock

	raw *sdk.Message
}

// ImageBlock is a base64-encodable image attachment.
type ImageBlock struct {
	MediaType string // e.g. "image/jpeg"
	Data      []byte
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage

	raw *sdk.Message
}

// ContentBlock represents a block of content in a response. Tool-use and
// tool-result blocks appear with their Type set and an empty Text.
type ContentBlock struct {
	Type string
	Text string
}

// Text concatenates all text blocks in the response.
func (r *MessageResponse) Text() string {
	return strings.Join(r.TextBlocks(), "\n")
}

// TextBlocks returns the non-empty text blocks in order.
func (r *MessageResponse) TextBlocks() []string {
	if r == nil {
		return nil
	}
	var blocks []string
	for _, b := range r.Content {
		if b.Text != "" {
			blocks = append(blocks, b.Text)
		}
	}
	return blocks
}

// AssistantTurn converts the response into an assistant message suitable
// for appending to the conversation on continuation. When the raw SDK
// message is available it round-trips verbatim, preserving server tool
// blocks.
func (r *MessageResponse) AssistantTurn() Message {
	return Message{Role: "assistant", Content: r.Text(), raw: r.raw}
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Add accumulates usage from another response.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and
// model ID. Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	inCost := (float64(u.InputTokens) / 1e6) * pricing[0]
	outCost := (float64(u.OutputTokens) / 1e6) * pricing[1]
	cacheWriteCost := (float64(u.CacheCreationInputTokens) / 1e6) * pricing[0] * 1.25
	cacheReadCost := (float64(u.CacheReadInputTokens) / 1e6) * pricing[0] * 0.1
	return inCost + outCost + cacheWriteCost + cacheReadCost
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}

	if len(req.System) > 0 {
		params.System = toSDKSystemBlocks(req.System)
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	return fromSDKMessage(msg), nil
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		if m.raw != nil {
			out[i] = m.raw.ToParam()
			continue
		}

		var blocks []sdk.ContentBlockParamUnion
		if m.Image != nil {
			blocks = append(blocks, sdk.NewImageBlockBase64(
				m.Image.MediaType,
				base64.StdEncoding.EncodeToString(m.Image.Data),
			))
		}
		blocks = append(blocks, sdk.NewTextBlock(m.Content))

		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(blocks...)
		default:
			out[i] = sdk.NewUserMessage(blocks...)
		}
	}
	return out
}

func toSDKSystemBlocks(blocks []SystemBlock) []sdk.TextBlockParam {
	out := make([]sdk.TextBlockParam, len(blocks))
	for i, b := range blocks {
		out[i] = sdk.TextBlockParam{
			Text: b.Text,
		}
		if b.CacheControl != nil {
			cc := sdk.NewCacheControlEphemeralParam()
			if b.CacheControl.TTL != "" {
				cc.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
			}
			out[i].CacheControl = cc
		}
	}
	return out
}

func toSDKTools(tools []Tool) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Type != "web_search" {
			continue
		}
		ws := &sdk.WebSearchTool20250305Param{}
		if t.MaxUses > 0 {
			ws.MaxUses = sdk.Int(int64(t.MaxUses))
		}
		if len(t.AllowedDomains) > 0 {
			ws.AllowedDomains = t.AllowedDomains
		}
		if loc := t.UserLocation; loc != nil {
			ws.UserLocation = sdk.WebSearchTool20250305UserLocationParam{
				City:     sdk.String(loc.City),
				Region:   sdk.String(loc.Region),
				Country:  sdk.String(loc.Country),
				Timezone: sdk.String(loc.Timezone),
			}
		}
		out = append(out, sdk.ToolUnionParam{OfWebSearchTool20250305: ws})
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ContentBlock{
			Type: b.Type,
			Text: b.Text,
		})
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    blocks,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
		raw: msg,
	}
}
