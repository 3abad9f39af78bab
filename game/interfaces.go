package game

import (
	"context"

	"github.com/skeehn/reverseturing/domain"
)

// PromptSource supplies the round prompt for a room type. An error or
// empty text makes the orchestrator fall back to the built-in prompts.
type PromptSource interface {
	RandomPrompt(ctx context.Context, roomType string) (domain.Prompt, error)
}

// Judge estimates how likely a response is human-written. It never
// fails: implementations degrade to the neutral judgment
// {0.5, "unable to determine"} internally.
type Judge interface {
	Judge(ctx context.Context, prompt, response string) domain.Judgment
}

// Responder generates the AI answer for a prompt. It never fails and
// never blocks past its own timeout; an empty return still gets
// replaced by the orchestrator's placeholder.
type Responder interface {
	Generate(ctx context.Context, roomType, prompt string) string
}

// Broadcaster fans an event out to every member of a room,
// fire-and-forget.
type Broadcaster interface {
	Emit(roomId, event string, payload any)
}

// RoundStore is the persistence boundary. All three calls are
// fire-and-forget from the orchestrator's perspective: failures are
// logged and never surface in a player-facing result.
type RoundStore interface {
	SaveRoundSnapshot(ctx context.Context, snap domain.RoundSnapshot) error
	UpdatePlayerStats(ctx context.Context, playerId string, wonAsHuman, detectedCorrectly bool) error
	FlagForRetraining(ctx context.Context, roundId string) error
}

// UserGetter resolves the display name for an authenticated player at
// join time.
type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

// LeaderboardSource backs the read-only leaderboard endpoint.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, roomType, period string, limit int) ([]domain.LeaderboardEntry, error)
}
