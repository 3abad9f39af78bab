package ai

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/skeehn/reverseturing/domain"
)

// StaticJudge is the no-endpoint judge: a cheap heuristic over
// informality markers, so local games still produce varied verdicts.
type StaticJudge struct{}

var humanMarkers = []string{"i ", "my ", "me ", "lol", "honestly", "kinda", "sorta", "tbh", "um", "uh"}

func (StaticJudge) Judge(ctx context.Context, prompt, response string) domain.Judgment {
	lower := strings.ToLower(response)

	score := 0.4
	for _, marker := range humanMarkers {
		if strings.Contains(lower, marker) {
			score += 0.08
		}
	}
	// Short, unpolished answers read as human; long structured ones
	// as model output.
	if len(response) < 120 {
		score += 0.1
	}
	if len(response) > 400 {
		score -= 0.15
	}
	score = min(max(score, 0.05), 0.95)

	return domain.Judgment{
		HumanProb: score,
		Reasoning: "Heuristic judgment based on informality markers and response length.",
	}
}

// StaticResponder is the no-endpoint responder, serving canned
// answers so rooms stay playable without an inference server.
type StaticResponder struct{}

var fallbackResponses = []string{
	"That's an interesting question. Let me think about it...",
	"I'm not entirely sure, but here's what I think...",
	"Hmm, that's a tough one to answer definitively.",
	"From what I understand, this is a complex topic.",
	"I'd need to think more about this to give you a complete answer.",
}

func (StaticResponder) Generate(ctx context.Context, roomType, prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "explain") || strings.Contains(lower, "describe") || strings.Contains(lower, "tell"):
		return "Let me try to explain this as I understand it..."
	case strings.Contains(lower, "write") || strings.Contains(lower, "create") || strings.Contains(lower, "make"):
		return "Here's my attempt at that..."
	default:
		return fallbackResponses[rand.IntN(len(fallbackResponses))]
	}
}
