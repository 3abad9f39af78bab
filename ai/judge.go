// Package ai holds the two model roles of the game: the judge that
// scores responses for human-ness and the responder that writes the
// AI-side answer. Both come in an LLM-backed flavor speaking the
// OpenAI chat completions protocol and a static flavor for running
// without an inference endpoint.
package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog/log"

	"github.com/skeehn/reverseturing/domain"
)

const judgeMaxTokens = 150

var neutralJudgment = domain.Judgment{
	HumanProb: 0.5,
	Reasoning: "Unable to make determination due to processing error.",
}

var (
	probPattern      = regexp.MustCompile(`(?i)HUMAN_PROB:\s*(\d+(?:\.\d+)?)`)
	reasoningPattern = regexp.MustCompile(`(?is)REASONING:\s*(.+?)(?:\n|$)`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// LLMJudge scores responses through a chat completions endpoint. It
// never returns an error: anything that goes wrong degrades to the
// neutral judgment so a round always gets a verdict.
type LLMJudge struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewLLMJudge(endpoint, apiKey, model string, timeout time.Duration) *LLMJudge {
	return &LLMJudge{
		client:  openai.NewClient(option.WithBaseURL(endpoint), option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (j *LLMJudge) Judge(ctx context.Context, prompt, response string) domain.Judgment {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	completion, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(judgePrompt(prompt, response)),
		},
		Temperature: openai.Float(0.7),
		TopP:        openai.Float(0.95),
		MaxTokens:   openai.Int(judgeMaxTokens),
	})
	if err != nil {
		log.Error().Str("module", "ai").Err(err).Msg("judge completion failed")
		return neutralJudgment
	}
	if len(completion.Choices) == 0 {
		log.Error().Str("module", "ai").Msg("judge completion returned no choices")
		return neutralJudgment
	}

	return parseJudgment(completion.Choices[0].Message.Content)
}

func judgePrompt(prompt, response string) string {
	return fmt.Sprintf(`You are an expert at detecting whether text was written by a human or an AI assistant.

Analyze the following response to determine if it was written by a human or AI.

Original Prompt: %s

Response to Analyze: %s

Consider these factors:
- Writing style and natural flow
- Presence of personal experiences or emotions
- Imperfections, typos, or informal language
- Overly structured or formulaic responses
- Hedging language or uncertainty markers
- Specific details vs. generic statements

Provide your analysis in exactly this format:
HUMAN_PROB: [number between 0 and 100]
REASONING: [2-3 sentences explaining your judgment]

Your response:`, prompt, response)
}

// parseJudgment extracts the structured verdict from raw model
// output. Probabilities above 1 are read as percentages; results are
// clamped to [0, 1]. When the model ignored the format entirely, a
// keyword scan decides between a mild human (0.7) and AI (0.3) lean.
func parseJudgment(raw string) domain.Judgment {
	result := domain.Judgment{
		HumanProb: 0.5,
		Reasoning: "Unable to parse model output",
	}

	if m := probPattern.FindStringSubmatch(raw); m != nil {
		if prob, err := strconv.ParseFloat(m[1], 64); err == nil {
			if prob > 1 {
				prob /= 100.0
			}
			result.HumanProb = min(max(prob, 0.0), 1.0)
		}
	}

	if m := reasoningPattern.FindStringSubmatch(raw); m != nil {
		reasoning := spacePattern.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		if len(reasoning) > 500 {
			reasoning = reasoning[:500]
		}
		result.Reasoning = reasoning
	}

	if result.Reasoning == "Unable to parse model output" {
		lower := strings.ToLower(raw)
		hasHuman := strings.Contains(lower, "human")
		hasAI := strings.Contains(lower, "ai")
		switch {
		case hasHuman && !hasAI:
			result.HumanProb = 0.7
			result.Reasoning = "Response appears to be human-written based on analysis."
		case hasAI && !hasHuman:
			result.HumanProb = 0.3
			result.Reasoning = "Response appears to be AI-generated based on analysis."
		case raw != "":
			if len(raw) > 200 {
				raw = raw[:200]
			}
			result.Reasoning = raw
		default:
			result.Reasoning = "No judgment provided"
		}
	}

	return result
}
