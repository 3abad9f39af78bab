package game

import (
	"time"

	"github.com/skeehn/reverseturing/domain"
)

// roundState is the per-round mutable record. It is replaced wholesale
// at every round start, never reset field by field, so a stale
// reference from a previous round can never observe the new one.
type roundState struct {
	id     string
	number int
	phase  Phase

	promptId int64
	prompt   string

	responses map[Role]string
	// responseOrder is fixed once voting starts: responseOrder[0] is
	// displayed on the left, responseOrder[1] on the right.
	responseOrder [2]Role
	judgments     map[Role]domain.Judgment
	votes         map[string]Side

	startedAt time.Time
}

func newRoundState(id string, number int, now time.Time) *roundState {
	return &roundState{
		id:        id,
		number:    number,
		phase:     PhasePrompting,
		responses: make(map[Role]string, 2),
		judgments: make(map[Role]domain.Judgment, 2),
		votes:     make(map[string]Side),
		startedAt: now,
	}
}

func (r *roundState) hasResponse(role Role) bool {
	_, ok := r.responses[role]
	return ok
}
