package ai

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog/log"
)

const (
	responderMaxTokens = 300
	cloakProbability   = 0.3
)

var personas = []string{
	"You are a helpful assistant responding naturally and conversationally.",
	"You are responding in a casual, friendly manner.",
	"You are answering questions with enthusiasm and personality.",
	"You are providing thoughtful, detailed responses.",
}

// LLMResponder produces the AI answer to a round prompt through a
// chat completions endpoint. It never returns an error; the empty
// string on failure lets the caller substitute its own placeholder.
type LLMResponder struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewLLMResponder(endpoint, apiKey, model string, timeout time.Duration) *LLMResponder {
	return &LLMResponder{
		client:  openai.NewClient(option.WithBaseURL(endpoint), option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (r *LLMResponder) Generate(ctx context.Context, roomType, prompt string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var cloak string
	if rand.Float64() < cloakProbability {
		cloak = cloakNames[rand.IntN(len(cloakNames))]
	}

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(responderSystemPrompt(roomType, cloak)),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7 + rand.Float64()*0.3),
		TopP:        openai.Float(0.95),
		MaxTokens:   openai.Int(responderMaxTokens),
	})
	if err != nil {
		log.Error().Str("module", "ai").Err(err).Msg("responder completion failed")
		return ""
	}
	if len(completion.Choices) == 0 {
		log.Error().Str("module", "ai").Msg("responder completion returned no choices")
		return ""
	}

	return humanize(completion.Choices[0].Message.Content, cloak != "")
}

func responderSystemPrompt(roomType, cloak string) string {
	if cloak != "" {
		return fmt.Sprintf("Generate a response with these style modifications: %s", styleCloaks[cloak].AIModification)
	}
	persona := personas[rand.IntN(len(personas))]
	if roomType != "" {
		persona += fmt.Sprintf(" The conversation is a %s exercise.", roomType)
	}
	return persona
}

// humanize strips assistant framing and sprinkles in the occasional
// hesitation or filler so the output reads less like a model and more
// like a person typing under a deadline.
func humanize(response string, cloaked bool) string {
	response = strings.TrimSpace(response)

	for _, prefix := range []string{"Assistant:", "AI:", "Response:", "Answer:"} {
		if strings.HasPrefix(response, prefix) {
			response = strings.TrimSpace(strings.TrimPrefix(response, prefix))
		}
	}
	if response == "" {
		return ""
	}

	if !cloaked && rand.Float64() < 0.3 {
		hesitations := []string{"Well, ", "So, ", "Actually, ", "You know, ", "I think "}
		response = hesitations[rand.IntN(len(hesitations))] + strings.ToLower(response[:1]) + response[1:]
	}

	if !cloaked && rand.Float64() < 0.1 {
		fillers := []string{" kind of", " sort of", " like", " basically"}
		words := strings.Fields(response)
		if len(words) > 10 {
			pos := 3 + rand.IntN(min(8, len(words)-5))
			words[pos] += fillers[rand.IntN(len(fillers))]
			response = strings.Join(words, " ")
		}
	}

	// Long answers are a tell; cap at a handful of sentences.
	sentences := strings.Split(response, ". ")
	if len(sentences) > 5 {
		keep := 2 + rand.IntN(4)
		response = strings.Join(sentences[:keep], ". ")
		if !strings.HasSuffix(response, ".") {
			response += "."
		}
	}

	return response
}
