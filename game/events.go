package game

import "github.com/skeehn/reverseturing/domain"

// Event names emitted over the room broadcaster. The core state
// machine emits new_round, judging_started, voting_phase,
// round_results and error; the rest are transport-level notifications.
const (
	EventConnected         = "connected"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventNewRound          = "new_round"
	EventJudgingStarted    = "judging_started"
	EventVotingPhase       = "voting_phase"
	EventResponseSubmitted = "response_submitted"
	EventVoteSubmitted     = "vote_submitted"
	EventRoundResults      = "round_results"
	EventError             = "error"
)

type ConnectedPayload struct {
	PlayerId string `json:"player_id"`
	Username string `json:"username"`
}

type PlayerJoinedPayload struct {
	PlayerId    string   `json:"player_id"`
	Username    string   `json:"username"`
	PlayerCount int      `json:"player_count"`
	RoomId      string   `json:"room_id"`
	RoomType    string   `json:"room_type"`
	Status      string   `json:"status"`
	Players     []string `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerId    string `json:"player_id"`
	Username    string `json:"username"`
	PlayerCount int    `json:"player_count"`
}

type NewRoundPayload struct {
	Prompt      string `json:"prompt"`
	RoomType    string `json:"room_type"`
	RoundNumber int    `json:"round_number"`
	Timeout     int    `json:"timeout"`
}

type JudgingStartedPayload struct {
	Message string `json:"message"`
}

type VotingPhasePayload struct {
	Prompt        string `json:"prompt"`
	LeftResponse  string `json:"left_response"`
	RightResponse string `json:"right_response"`
	Timeout       int    `json:"timeout"`
}

type SubmissionAckPayload struct {
	PlayerId string `json:"player_id"`
	Status   string `json:"status"`
}

type JudgeVerdict struct {
	Human   domain.Judgment `json:"human"`
	AI      domain.Judgment `json:"ai"`
	Correct bool            `json:"correct"`
}

type VoteTally struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type RoundResultsPayload struct {
	Prompt         string       `json:"prompt"`
	LeftResponse   string       `json:"left_response"`
	RightResponse  string       `json:"right_response"`
	LeftIs         string       `json:"left_is"`
	RightIs        string       `json:"right_is"`
	JudgeVerdict   JudgeVerdict `json:"judge_verdict"`
	PlayerVotes    VoteTally    `json:"player_votes"`
	PlayerAccuracy float64      `json:"player_accuracy"`
	CorrectVotes   int          `json:"correct_votes"`
	TotalVotes     int          `json:"total_votes"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
