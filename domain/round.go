package domain

import "time"

// Judgment is the judge model's verdict on a single response.
type Judgment struct {
	HumanProb float64 `json:"human_prob"`
	Reasoning string  `json:"reasoning"`
}

type Prompt struct {
	Id   int64
	Text string
}

// RoundSnapshot is the persisted record of one round, written once the
// judge has produced both verdicts.
type RoundSnapshot struct {
	RoundId       string
	RoomKey       string
	RoomType      string
	RoundNumber   int
	PromptId      int64
	PromptText    string
	HumanResponse string
	AIResponse    string
	HumanJudgment Judgment
	AIJudgment    Judgment
	StartedAt     time.Time
	DurationMs    int64
}
