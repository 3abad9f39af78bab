package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skeehn/reverseturing/domain"
)

type orchFixture struct {
	prompts   *MockPromptSource
	judge     *MockJudge
	responder *MockResponder
	store     *MockRoundStore
	sched     *fakeScheduler
	bus       *recordingBus
	orch      *Orchestrator
}

func newOrchFixture(cfg Config) *orchFixture {
	f := &orchFixture{
		prompts:   &MockPromptSource{},
		judge:     &MockJudge{},
		responder: &MockResponder{},
		store:     &MockRoundStore{},
		sched:     &fakeScheduler{},
		bus:       &recordingBus{},
	}
	f.orch = NewOrchestrator("room-1", cfg, Deps{
		Scheduler: f.sched,
		Prompts:   f.prompts,
		Judge:     f.judge,
		Responder: f.responder,
		Bus:       f.bus,
		Store:     f.store,
	})
	// Human always displayed on the left, so assertions are stable.
	f.orch.coin = func() bool { return true }
	return f
}

func defaultConfig() Config {
	return Config{
		RoomType:        "poetry",
		MinPlayers:      1,
		MaxPlayers:      4,
		ResponseTimeout: 90 * time.Second,
		VotingTimeout:   30 * time.Second,
	}
}

func (f *orchFixture) expectRoundSetup(prompt, aiResponse string) {
	f.prompts.On("RandomPrompt", mock.Anything, "poetry").Return(domain.Prompt{Id: 7, Text: prompt}, nil)
	f.responder.On("Generate", mock.Anything, "poetry", prompt).Return(aiResponse)
}

func (f *orchFixture) expectStoreWrites() {
	f.store.On("SaveRoundSnapshot", mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdatePlayerStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.store.On("FlagForRetraining", mock.Anything, mock.Anything).Return(nil)
}

func TestOrchestrator_FullRound_JudgeFooled(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("Write a haiku about rain", "Raindrops on the glass")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, "Write a haiku about rain", "wet sky again lol").
		Return(domain.Judgment{HumanProb: 0.3, Reasoning: "too short"})
	f.judge.On("Judge", mock.Anything, "Write a haiku about rain", "Raindrops on the glass").
		Return(domain.Judgment{HumanProb: 0.6, Reasoning: "flows naturally"})

	added, err := f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, err)
	require.True(t, added)
	assert.True(t, f.orch.ReadyToStart())

	require.NoError(t, f.orch.StartRound())
	assert.Equal(t, PhaseCollecting, f.orch.Phase())

	newRound, ok := f.bus.find(EventNewRound)
	require.True(t, ok)
	assert.Equal(t, NewRoundPayload{
		Prompt:      "Write a haiku about rain",
		RoomType:    "poetry",
		RoundNumber: 1,
		Timeout:     90,
	}, newRound.payload)

	require.NoError(t, f.orch.SubmitHumanResponse("p1", "wet sky again lol"))

	_, ok = f.bus.find(EventJudgingStarted)
	assert.True(t, ok)

	voting, ok := f.bus.find(EventVotingPhase)
	require.True(t, ok)
	assert.Equal(t, VotingPhasePayload{
		Prompt:        "Write a haiku about rain",
		LeftResponse:  "wet sky again lol",
		RightResponse: "Raindrops on the glass",
		Timeout:       30,
	}, voting.payload)
	assert.Equal(t, PhaseVoting, f.orch.Phase())

	// Sole player voting closes the round immediately.
	require.NoError(t, f.orch.SubmitVote("p1", SideLeft))

	results, ok := f.bus.find(EventRoundResults)
	require.True(t, ok)
	payload := results.payload.(RoundResultsPayload)
	assert.Equal(t, "human", payload.LeftIs)
	assert.Equal(t, "ai", payload.RightIs)
	assert.False(t, payload.JudgeVerdict.Correct)
	assert.Equal(t, VoteTally{Left: 1}, payload.PlayerVotes)
	assert.Equal(t, 1, payload.CorrectVotes)
	assert.Equal(t, 1, payload.TotalVotes)
	assert.Equal(t, 1.0, payload.PlayerAccuracy)

	assert.Equal(t, PhaseCompleted, f.orch.Phase())

	f.store.AssertCalled(t, "SaveRoundSnapshot", mock.Anything, mock.Anything)
	// The player responded but was scored less human than the AI.
	f.store.AssertCalled(t, "UpdatePlayerStats", mock.Anything, "p1", false, true)
	// A fooled judge flags the round as training material.
	f.store.AssertCalled(t, "FlagForRetraining", mock.Anything, mock.Anything)
}

func TestOrchestrator_JudgeCorrect_NoRetrainingFlag(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.store.On("SaveRoundSnapshot", mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdatePlayerStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.judge.On("Judge", mock.Anything, "prompt", "human answer").
		Return(domain.Judgment{HumanProb: 0.8, Reasoning: "personal details"})
	f.judge.On("Judge", mock.Anything, "prompt", "ai answer").
		Return(domain.Judgment{HumanProb: 0.2, Reasoning: "formulaic"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "human answer"))
	require.NoError(t, f.orch.SubmitVote("p1", SideRight))

	results, _ := f.bus.find(EventRoundResults)
	payload := results.payload.(RoundResultsPayload)
	assert.True(t, payload.JudgeVerdict.Correct)
	assert.Equal(t, 0, payload.CorrectVotes)
	assert.Equal(t, 0.0, payload.PlayerAccuracy)

	f.store.AssertCalled(t, "UpdatePlayerStats", mock.Anything, "p1", true, false)
	f.store.AssertNotCalled(t, "FlagForRetraining", mock.Anything, mock.Anything)
}

func TestOrchestrator_EqualScores_FavorAI(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "human answer"))
	require.NoError(t, f.orch.SubmitVote("p1", SideLeft))

	results, _ := f.bus.find(EventRoundResults)
	payload := results.payload.(RoundResultsPayload)
	assert.False(t, payload.JudgeVerdict.Correct)
	f.store.AssertCalled(t, "FlagForRetraining", mock.Anything, mock.Anything)
}

func TestOrchestrator_StartRound_PhaseValidation(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())
	f.expectRoundSetup("prompt", "ai answer")

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())

	// Already collecting; a second start must be rejected.
	assert.ErrorIs(t, f.orch.StartRound(), ErrInvalidPhase)
}

func TestOrchestrator_StartRound_RecoversFromError(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())
	f.expectRoundSetup("prompt", "ai answer")

	f.orch.AddPlayer("p1", "naruto")
	f.orch.mu.Lock()
	f.orch.round.phase = PhaseError
	f.orch.mu.Unlock()

	require.NoError(t, f.orch.StartRound())
	assert.Equal(t, PhaseCollecting, f.orch.Phase())
}

func TestOrchestrator_RequestNewRound(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())

	// Mid-round requests are rejected.
	assert.ErrorIs(t, f.orch.RequestNewRound(), ErrRoundNotFinished)

	require.NoError(t, f.orch.SubmitHumanResponse("p1", "human answer"))
	require.NoError(t, f.orch.SubmitVote("p1", SideLeft))
	require.Equal(t, PhaseCompleted, f.orch.Phase())

	f.bus.reset()
	require.NoError(t, f.orch.RequestNewRound())
	assert.Equal(t, PhaseCollecting, f.orch.Phase())

	newRound, ok := f.bus.find(EventNewRound)
	require.True(t, ok)
	assert.Equal(t, 2, newRound.payload.(NewRoundPayload).RoundNumber)
}

func TestOrchestrator_ResponseTimeout_UsesSentinel(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.store.On("SaveRoundSnapshot", mock.Anything, mock.Anything).Return(nil)
	f.store.On("FlagForRetraining", mock.Anything, mock.Anything).Return(nil)
	f.judge.On("Judge", mock.Anything, "prompt", "No response provided").
		Return(domain.Judgment{HumanProb: 0.1, Reasoning: "nothing to judge"})
	f.judge.On("Judge", mock.Anything, "prompt", "ai answer").
		Return(domain.Judgment{HumanProb: 0.4, Reasoning: "plausible"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())

	responseTimer := f.sched.last()
	require.NotNil(t, responseTimer)
	assert.Equal(t, 90*time.Second, responseTimer.d)

	responseTimer.Fire()

	voting, ok := f.bus.find(EventVotingPhase)
	require.True(t, ok)
	assert.Equal(t, "No response provided", voting.payload.(VotingPhasePayload).LeftResponse)
	assert.Equal(t, PhaseVoting, f.orch.Phase())

	// A submission racing in after the deadline resolved is rejected.
	assert.ErrorIs(t, f.orch.SubmitHumanResponse("p1", "too late"), ErrInvalidPhase)
}

func TestOrchestrator_SingleResponseSlot(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, f.orch.StartRound())

	assert.ErrorIs(t, f.orch.SubmitHumanResponse("ghost", "hello"), ErrUnknownPlayer)
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "first"))
	// Judging already started; the slot is gone for everyone.
	assert.ErrorIs(t, f.orch.SubmitHumanResponse("p2", "second"), ErrInvalidPhase)
}

func TestOrchestrator_VoteValidation(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")

	// No round yet.
	assert.ErrorIs(t, f.orch.SubmitVote("p1", SideLeft), ErrInvalidPhase)

	require.NoError(t, f.orch.StartRound())
	assert.ErrorIs(t, f.orch.SubmitVote("p1", SideLeft), ErrInvalidPhase)

	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))
	require.Equal(t, PhaseVoting, f.orch.Phase())

	assert.ErrorIs(t, f.orch.SubmitVote("p1", Side("middle")), ErrInvalidVote)
	assert.ErrorIs(t, f.orch.SubmitVote("ghost", SideLeft), ErrUnknownPlayer)

	require.NoError(t, f.orch.SubmitVote("p1", SideLeft))
	assert.ErrorIs(t, f.orch.SubmitVote("p1", SideRight), ErrAlreadyVoted)

	// p2 completes the vote; round closes.
	require.NoError(t, f.orch.SubmitVote("p2", SideRight))
	assert.Equal(t, PhaseCompleted, f.orch.Phase())
	assert.ErrorIs(t, f.orch.SubmitVote("p2", SideLeft), ErrInvalidPhase)
}

func TestOrchestrator_VotingTimeout_PartialVotes(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))

	votingTimer := f.sched.last()
	require.NotNil(t, votingTimer)
	assert.Equal(t, 30*time.Second, votingTimer.d)

	require.NoError(t, f.orch.SubmitVote("p1", SideLeft))
	votingTimer.Fire()

	results, ok := f.bus.find(EventRoundResults)
	require.True(t, ok)
	payload := results.payload.(RoundResultsPayload)
	assert.Equal(t, 1, payload.TotalVotes)
	assert.Equal(t, PhaseCompleted, f.orch.Phase())

	// Only the voter gets a stats update.
	f.store.AssertCalled(t, "UpdatePlayerStats", mock.Anything, "p1", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "UpdatePlayerStats", mock.Anything, "p2", mock.Anything, mock.Anything)
}

func TestOrchestrator_VotingTimeout_NoVotes(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))

	votingTimer := f.sched.last()
	require.NotNil(t, votingTimer)
	votingTimer.Fire()

	// Nobody voted; the reveal still runs with an empty tally.
	results, ok := f.bus.find(EventRoundResults)
	require.True(t, ok)
	payload := results.payload.(RoundResultsPayload)
	assert.Equal(t, VoteTally{}, payload.PlayerVotes)
	assert.Equal(t, 0, payload.CorrectVotes)
	assert.Equal(t, 0, payload.TotalVotes)
	assert.Equal(t, 0.0, payload.PlayerAccuracy)
	assert.Equal(t, PhaseCompleted, f.orch.Phase())

	f.store.AssertNotCalled(t, "UpdatePlayerStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_StaleResponseTimerIsNoOp(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())
	responseTimer := f.sched.last()

	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))
	require.Equal(t, PhaseVoting, f.orch.Phase())
	eventsBefore := len(f.bus.names())

	// The deadline callback losing the race must change nothing.
	responseTimer.fn()

	assert.Equal(t, PhaseVoting, f.orch.Phase())
	assert.Equal(t, eventsBefore, len(f.bus.names()))
}

func TestOrchestrator_AddPlayer(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	cfg.MaxPlayers = 2
	f := newOrchFixture(cfg)

	added, err := f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, err)
	assert.True(t, added)

	// Rejoining is idempotent.
	added, err = f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, err)

	_, err = f.orch.AddPlayer("p3", "sakura")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 2, f.orch.PlayerCount())
}

func TestOrchestrator_RemovePlayer_KeepsSubmittedResponse(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))

	// The responder leaving mid-round does not disturb the phase or
	// their response.
	assert.True(t, f.orch.RemovePlayer("p1"))
	assert.Equal(t, PhaseVoting, f.orch.Phase())

	require.NoError(t, f.orch.SubmitVote("p2", SideLeft))
	results, ok := f.bus.find(EventRoundResults)
	require.True(t, ok)
	assert.Equal(t, "mine", results.payload.(RoundResultsPayload).LeftResponse)
}

func TestOrchestrator_RemovePlayer_DiscardsVote(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "ai answer")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	f.orch.AddPlayer("p2", "sasuke")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))

	require.NoError(t, f.orch.SubmitVote("p2", SideLeft))
	assert.True(t, f.orch.RemovePlayer("p2"))

	// p1's vote is now the last outstanding one and closes the round;
	// p2's discarded vote must not be scored.
	require.NoError(t, f.orch.SubmitVote("p1", SideRight))
	results, ok := f.bus.find(EventRoundResults)
	require.True(t, ok)
	assert.Equal(t, 1, results.payload.(RoundResultsPayload).TotalVotes)
	f.store.AssertNotCalled(t, "UpdatePlayerStats", mock.Anything, "p2", mock.Anything, mock.Anything)
}

func TestOrchestrator_PromptSourceFailure_FallsBack(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.prompts.On("RandomPrompt", mock.Anything, "poetry").
		Return(domain.Prompt{}, errors.New("db down"))
	f.responder.On("Generate", mock.Anything, "poetry", mock.Anything).Return("ai answer")

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())

	newRound, ok := f.bus.find(EventNewRound)
	require.True(t, ok)
	prompt := newRound.payload.(NewRoundPayload).Prompt
	assert.Contains(t, roomPrompts["poetry"], prompt)
}

func TestOrchestrator_ResponderFailure_UsesPlaceholder(t *testing.T) {
	t.Parallel()
	f := newOrchFixture(defaultConfig())

	f.expectRoundSetup("prompt", "")
	f.expectStoreWrites()
	f.judge.On("Judge", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Judgment{HumanProb: 0.5, Reasoning: "unsure"})

	f.orch.AddPlayer("p1", "naruto")
	require.NoError(t, f.orch.StartRound())
	require.NoError(t, f.orch.SubmitHumanResponse("p1", "mine"))

	voting, ok := f.bus.find(EventVotingPhase)
	require.True(t, ok)
	assert.Equal(t, "This is a placeholder AI response.", voting.payload.(VotingPhasePayload).RightResponse)
}

func TestOrchestrator_ReadyToStart(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	cfg.MinPlayers = 2
	f := newOrchFixture(cfg)

	assert.False(t, f.orch.ReadyToStart())
	f.orch.AddPlayer("p1", "naruto")
	assert.False(t, f.orch.ReadyToStart())
	f.orch.AddPlayer("p2", "sasuke")
	assert.True(t, f.orch.ReadyToStart())
}
