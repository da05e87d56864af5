package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/pkg/anthropic"
)

// continueInstruction is resubmitted when the server pauses an agent
// turn mid-search. The model must not restart its research, only finish
// and emit the final answer.
const continueInstruction = "Continue. Reply with only the final JSON object, no prose."

// defaultMaxContinues bounds how many paused turns we are willing to
// resume before giving up on a wine.
const defaultMaxContinues = 4

// runAgent drives one agent conversation to completion, resuming
// pause_turn stops up to maxContinues times. It returns every text
// block produced across all turns (later turns last) together with the
// accumulated token usage. The error is the transport error of the last
// attempt; any text gathered before it is still returned for salvage.
func runAgent(ctx context.Context, client anthropic.Client, req anthropic.MessageRequest, maxContinues int) ([]string, anthropic.TokenUsage, error) {
	if maxContinues <= 0 {
		maxContinues = defaultMaxContinues
	}

	msgs := req.Messages
	var blocks []string
	var usage anthropic.TokenUsage

	for attempt := 0; ; attempt++ {
		req.Messages = msgs
		resp, err := client.CreateMessage(ctx, req)
		if err != nil {
			return blocks, usage, err
		}

		usage.Add(resp.Usage)
		blocks = append(blocks, resp.TextBlocks()...)

		if resp.StopReason != anthropic.StopReasonPauseTurn {
			return blocks, usage, nil
		}
		if attempt >= maxContinues {
			zap.L().Warn("agent: continuation budget exhausted",
				zap.Int("continues", attempt),
				zap.String("model", req.Model),
			)
			return blocks, usage, nil
		}

		msgs = append(msgs,
			resp.AssistantTurn(),
			anthropic.Message{Role: "user", Content: continueInstruction},
		)
	}
}
