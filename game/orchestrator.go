package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skeehn/reverseturing/domain"
)

// Placeholder texts for the two recoverable collection failures: the
// responder erroring out, and the response deadline passing with no
// human submission.
const (
	placeholderAIResponse = "This is a placeholder AI response."
	noResponseSentinel    = "No response provided"
)

const judgingMessage = "AI Judge is analyzing responses..."

// Config carries the per-room tunables the orchestrator needs.
type Config struct {
	RoomType        string
	MinPlayers      int
	MaxPlayers      int
	ResponseTimeout time.Duration
	VotingTimeout   time.Duration
}

// Orchestrator drives one room's rounds from creation to completion.
// Every state-mutating operation runs under o.mu, so at most one
// operation observes or mutates the round and roster at a time; that
// is what keeps the judging transition single-shot when a late human
// submission races the response timer, and what makes "last vote
// triggers reveal" exact. The lock is released around judge/responder
// inference so status reads never stall behind a model call, and the
// phase plus round id are re-validated after reacquiring.
type Orchestrator struct {
	mu sync.Mutex

	roomId string
	cfg    Config

	roster *roster
	round  *roundState

	sched     Scheduler
	prompts   PromptSource
	judge     Judge
	responder Responder
	bus       Broadcaster
	store     RoundStore

	responseTimer TimerHandle
	votingTimer   TimerHandle

	// coin decides the left/right display order; overridable in tests.
	coin func() bool
}

func NewOrchestrator(roomId string, cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		roomId:    roomId,
		cfg:       cfg,
		roster:    newRoster(),
		round:     &roundState{phase: PhaseWaiting},
		sched:     deps.Scheduler,
		prompts:   deps.Prompts,
		judge:     deps.Judge,
		responder: deps.Responder,
		bus:       deps.Bus,
		store:     deps.Store,
		coin:      func() bool { return rand.IntN(2) == 0 },
	}
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Scheduler Scheduler
	Prompts   PromptSource
	Judge     Judge
	Responder Responder
	Bus       Broadcaster
	Store     RoundStore
}

// --- status queries ---

func (o *Orchestrator) RoomId() string   { return o.roomId }
func (o *Orchestrator) RoomType() string { return o.cfg.RoomType }

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.round.phase
}

func (o *Orchestrator) PlayerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roster.count()
}

func (o *Orchestrator) PlayerNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roster.names()
}

// ReadyToStart reports whether the caller should kick off the first
// round. Starting stays the caller's responsibility: joining a room
// never starts a round as a hidden side effect.
func (o *Orchestrator) ReadyToStart() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.round.phase == PhaseWaiting && o.roster.count() >= o.cfg.MinPlayers
}

// --- roster operations ---

// AddPlayer registers a player. Valid in any phase. Returns
// (false, nil) if the id is already present, which changes nothing.
func (o *Orchestrator) AddPlayer(id, name string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.roster.get(id); ok {
		return false, nil
	}
	if o.roster.count() >= o.cfg.MaxPlayers {
		return false, ErrRoomFull
	}
	o.roster.add(id, name)
	log.Info().Str("module", "game").Str("room", o.roomId).Str("player", id).Str("username", name).Msg("player joined")
	return true, nil
}

// RemovePlayer discards the player along with any vote they cast this
// round. A human response they already submitted stays in the round
// record. Never changes phase.
func (o *Orchestrator) RemovePlayer(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.roster.get(id); !ok {
		return false
	}
	delete(o.round.votes, id)
	o.roster.remove(id)
	log.Info().Str("module", "game").Str("room", o.roomId).Str("player", id).Msg("player left")
	return true
}

// --- round lifecycle ---

// StartRound begins a fresh round. Only valid from waiting, completed
// or the terminal error phase; anything else is ErrInvalidPhase.
func (o *Orchestrator) StartRound() error {
	o.mu.Lock()
	switch o.round.phase {
	case PhaseWaiting, PhaseCompleted, PhaseError:
	default:
		o.mu.Unlock()
		return ErrInvalidPhase
	}
	return o.startRoundLocked()
}

// RequestNewRound starts the next round, but only once the current one
// has fully completed.
func (o *Orchestrator) RequestNewRound() error {
	o.mu.Lock()
	if o.round.phase != PhaseCompleted {
		o.mu.Unlock()
		return ErrRoundNotFinished
	}
	return o.startRoundLocked()
}

// startRoundLocked replaces the round state, resets player flags,
// fetches the prompt and the AI response (lock released around both),
// and opens collection. The round does not open for human input until
// the AI response is in hand, so judging can always proceed the moment
// the human response arrives. Consumes o.mu.
func (o *Orchestrator) startRoundLocked() error {
	roundId := uuid.NewString()
	number := o.round.number + 1
	o.cancelTimersLocked()
	o.round = newRoundState(roundId, number, time.Now())
	o.roster.resetFlags()
	o.mu.Unlock()

	log.Info().Str("module", "game").Str("room", o.roomId).Int("round", number).Msg("starting round")

	ctx := context.Background()
	prompt, err := o.prompts.RandomPrompt(ctx, o.cfg.RoomType)
	if err != nil || prompt.Text == "" {
		if err != nil {
			log.Warn().Str("module", "game").Str("room", o.roomId).Err(err).Msg("prompt source failed, using fallback")
		}
		prompt = domain.Prompt{Text: fallbackPrompt(o.cfg.RoomType)}
	}

	// Responder failure is recoverable: a placeholder keeps the round
	// alive rather than aborting it.
	aiResponse := o.responder.Generate(ctx, o.cfg.RoomType, prompt.Text)
	if aiResponse == "" {
		aiResponse = placeholderAIResponse
	}

	o.mu.Lock()
	if o.round.id != roundId || o.round.phase != PhasePrompting {
		// Superseded while the lock was dropped.
		o.mu.Unlock()
		return nil
	}
	o.round.promptId = prompt.Id
	o.round.prompt = prompt.Text
	o.round.responses[RoleAI] = aiResponse
	o.round.phase = PhaseCollecting
	o.responseTimer = o.sched.Schedule(o.cfg.ResponseTimeout, func() { o.onResponseTimeout(roundId) })
	payload := NewRoundPayload{
		Prompt:      prompt.Text,
		RoomType:    o.cfg.RoomType,
		RoundNumber: number,
		Timeout:     int(o.cfg.ResponseTimeout.Seconds()),
	}
	o.mu.Unlock()

	o.bus.Emit(o.roomId, EventNewRound, payload)
	return nil
}

// SubmitHumanResponse stores the round's single human response. The
// first submitter wins the slot and judging begins with their call, so
// later submitters find the collecting phase already closed.
func (o *Orchestrator) SubmitHumanResponse(playerId, text string) error {
	o.mu.Lock()

	if o.round.phase != PhaseCollecting {
		o.mu.Unlock()
		return ErrInvalidPhase
	}
	p, ok := o.roster.get(playerId)
	if !ok {
		o.mu.Unlock()
		return ErrUnknownPlayer
	}
	if p.responded || o.round.hasResponse(RoleHuman) {
		o.mu.Unlock()
		return ErrAlreadyResponded
	}

	o.round.responses[RoleHuman] = text
	p.responded = true
	p.response = text
	log.Info().Str("module", "game").Str("room", o.roomId).Str("player", playerId).Msg("human response received")

	// Collecting is only ever entered with the AI response in hand, so
	// both slots are now full and judging starts immediately.
	if o.round.hasResponse(RoleAI) {
		o.beginJudgingLocked()
		return nil
	}
	o.mu.Unlock()
	return nil
}

// onResponseTimeout is the response-deadline callback. The id and
// phase guard make it a no-op when it loses the race against a
// last-moment human submission.
func (o *Orchestrator) onResponseTimeout(roundId string) {
	o.mu.Lock()
	if o.round.id != roundId || o.round.phase != PhaseCollecting {
		o.mu.Unlock()
		return
	}
	log.Info().Str("module", "game").Str("room", o.roomId).Msg("response timeout reached")
	if !o.round.hasResponse(RoleHuman) {
		o.round.responses[RoleHuman] = noResponseSentinel
	}
	o.beginJudgingLocked()
}

// beginJudgingLocked advances collecting → judging → voting. Requires
// o.mu held; consumes it. The pending response timer is canceled
// before any externally observable effect of the new phase. Judge
// calls run with the lock released.
func (o *Orchestrator) beginJudgingLocked() {
	if !o.round.hasResponse(RoleHuman) || !o.round.hasResponse(RoleAI) {
		o.failRoundLocked("round state corrupted before judging")
		return
	}

	o.round.phase = PhaseJudging
	if o.responseTimer != nil {
		o.responseTimer.Cancel()
		o.responseTimer = nil
	}
	roundId := o.round.id
	prompt := o.round.prompt
	humanText := o.round.responses[RoleHuman]
	aiText := o.round.responses[RoleAI]
	o.mu.Unlock()

	o.bus.Emit(o.roomId, EventJudgingStarted, JudgingStartedPayload{Message: judgingMessage})

	// Inference may take seconds; status queries must not wait on it.
	ctx := context.Background()
	humanJudgment := o.judge.Judge(ctx, prompt, humanText)
	aiJudgment := o.judge.Judge(ctx, prompt, aiText)

	o.mu.Lock()
	if o.round.id != roundId || o.round.phase != PhaseJudging {
		o.mu.Unlock()
		return
	}
	o.round.judgments[RoleHuman] = humanJudgment
	o.round.judgments[RoleAI] = aiJudgment
	log.Info().Str("module", "game").Str("room", o.roomId).
		Float64("human_prob_human", humanJudgment.HumanProb).
		Float64("human_prob_ai", aiJudgment.HumanProb).
		Msg("judge verdicts in")

	snap := o.snapshotLocked()
	o.beginVotingLocked(roundId)

	if err := o.store.SaveRoundSnapshot(context.Background(), snap); err != nil {
		log.Error().Str("module", "game").Str("room", o.roomId).Err(err).Msg("failed to save round snapshot")
	}
}

// beginVotingLocked opens the voting phase: fixes a random display
// order, arms the voting deadline, and broadcasts the two blind
// responses. Requires o.mu held; consumes it.
func (o *Orchestrator) beginVotingLocked(roundId string) {
	o.round.phase = PhaseVoting
	if o.coin() {
		o.round.responseOrder = [2]Role{RoleHuman, RoleAI}
	} else {
		o.round.responseOrder = [2]Role{RoleAI, RoleHuman}
	}
	payload := VotingPhasePayload{
		Prompt:        o.round.prompt,
		LeftResponse:  o.round.responses[o.round.responseOrder[0]],
		RightResponse: o.round.responses[o.round.responseOrder[1]],
		Timeout:       int(o.cfg.VotingTimeout.Seconds()),
	}
	o.votingTimer = o.sched.Schedule(o.cfg.VotingTimeout, func() { o.onVotingTimeout(roundId) })
	o.mu.Unlock()

	o.bus.Emit(o.roomId, EventVotingPhase, payload)
}

// SubmitVote records a blind vote. When the last roster member votes,
// the reveal runs synchronously with that call and the voting timer is
// canceled.
func (o *Orchestrator) SubmitVote(playerId string, side Side) error {
	o.mu.Lock()

	if o.round.phase != PhaseVoting {
		o.mu.Unlock()
		return ErrInvalidPhase
	}
	if !side.Valid() {
		o.mu.Unlock()
		return ErrInvalidVote
	}
	p, ok := o.roster.get(playerId)
	if !ok {
		o.mu.Unlock()
		return ErrUnknownPlayer
	}
	if p.voted {
		o.mu.Unlock()
		return ErrAlreadyVoted
	}

	o.round.votes[playerId] = side
	p.voted = true
	p.vote = side
	log.Info().Str("module", "game").Str("room", o.roomId).Str("player", playerId).Str("vote", string(side)).Msg("vote received")

	if len(o.round.votes) == o.roster.count() {
		o.revealLocked()
		return nil
	}
	o.mu.Unlock()
	return nil
}

// onVotingTimeout closes voting at the deadline; partial votes are
// scored as-is.
func (o *Orchestrator) onVotingTimeout(roundId string) {
	o.mu.Lock()
	if o.round.id != roundId || o.round.phase != PhaseVoting {
		o.mu.Unlock()
		return
	}
	log.Info().Str("module", "game").Str("room", o.roomId).Msg("voting timeout reached")
	o.revealLocked()
}

type statsUpdate struct {
	playerId          string
	wonAsHuman        bool
	detectedCorrectly bool
}

// revealLocked computes and broadcasts the round outcome, then marks
// the round completed. Requires o.mu held; consumes it. Votes arriving
// once this has started are rejected with ErrInvalidPhase, never
// silently dropped.
func (o *Orchestrator) revealLocked() {
	o.round.phase = PhaseRevealing
	if o.votingTimer != nil {
		o.votingTimer.Cancel()
		o.votingTimer = nil
	}

	roundId := o.round.id
	leftIs := o.round.responseOrder[0]
	rightIs := o.round.responseOrder[1]
	humanSide := SideLeft
	if rightIs == RoleHuman {
		humanSide = SideRight
	}

	tally := VoteTally{}
	correctVotes := 0
	updates := make([]statsUpdate, 0, len(o.round.votes))
	for playerId, vote := range o.round.votes {
		if vote == SideLeft {
			tally.Left++
		} else {
			tally.Right++
		}
		detected := vote == humanSide
		if detected {
			correctVotes++
		}
		wonAsHuman := false
		if p, ok := o.roster.get(playerId); ok && p.responded {
			wonAsHuman = o.round.judgments[RoleHuman].HumanProb > 0.5
		}
		updates = append(updates, statsUpdate{playerId: playerId, wonAsHuman: wonAsHuman, detectedCorrectly: detected})
	}

	accuracy := 0.0
	if len(o.round.votes) > 0 {
		accuracy = float64(correctVotes) / float64(len(o.round.votes))
	}

	// 0.5 ties count as AI-favoring: strict >, not >=.
	judgeCorrect := o.round.judgments[RoleHuman].HumanProb > o.round.judgments[RoleAI].HumanProb

	payload := RoundResultsPayload{
		Prompt:        o.round.prompt,
		LeftResponse:  o.round.responses[leftIs],
		RightResponse: o.round.responses[rightIs],
		LeftIs:        leftIs.String(),
		RightIs:       rightIs.String(),
		JudgeVerdict: JudgeVerdict{
			Human:   o.round.judgments[RoleHuman],
			AI:      o.round.judgments[RoleAI],
			Correct: judgeCorrect,
		},
		PlayerVotes:    tally,
		PlayerAccuracy: accuracy,
		CorrectVotes:   correctVotes,
		TotalVotes:     len(o.round.votes),
	}
	o.mu.Unlock()

	ctx := context.Background()
	for _, u := range updates {
		if err := o.store.UpdatePlayerStats(ctx, u.playerId, u.wonAsHuman, u.detectedCorrectly); err != nil {
			log.Error().Str("module", "game").Str("room", o.roomId).Str("player", u.playerId).Err(err).Msg("failed to update player stats")
		}
	}
	if !judgeCorrect {
		if err := o.store.FlagForRetraining(ctx, roundId); err != nil {
			log.Error().Str("module", "game").Str("room", o.roomId).Err(err).Msg("failed to flag round for retraining")
		}
	}

	o.bus.Emit(o.roomId, EventRoundResults, payload)

	o.mu.Lock()
	if o.round.id == roundId && o.round.phase == PhaseRevealing {
		o.round.phase = PhaseCompleted
	}
	o.mu.Unlock()
}

// failRoundLocked is the unrecoverable-fault edge: terminal error
// phase until an explicit StartRound. Requires o.mu held; consumes it.
func (o *Orchestrator) failRoundLocked(msg string) {
	log.Error().Str("module", "game").Str("room", o.roomId).Str("phase", o.round.phase.String()).Msg(msg)
	o.round.phase = PhaseError
	o.cancelTimersLocked()
	o.mu.Unlock()

	o.bus.Emit(o.roomId, EventError, ErrorPayload{Message: msg})
}

func (o *Orchestrator) cancelTimersLocked() {
	if o.responseTimer != nil {
		o.responseTimer.Cancel()
		o.responseTimer = nil
	}
	if o.votingTimer != nil {
		o.votingTimer.Cancel()
		o.votingTimer = nil
	}
}

// snapshotLocked builds the persistence record. Requires o.mu held.
func (o *Orchestrator) snapshotLocked() domain.RoundSnapshot {
	return domain.RoundSnapshot{
		RoundId:       o.round.id,
		RoomKey:       o.roomId,
		RoomType:      o.cfg.RoomType,
		RoundNumber:   o.round.number,
		PromptId:      o.round.promptId,
		PromptText:    o.round.prompt,
		HumanResponse: o.round.responses[RoleHuman],
		AIResponse:    o.round.responses[RoleAI],
		HumanJudgment: o.round.judgments[RoleHuman],
		AIJudgment:    o.round.judgments[RoleAI],
		StartedAt:     o.round.startedAt,
		DurationMs:    time.Since(o.round.startedAt).Milliseconds(),
	}
}

// Close cancels pending timers. Called by the registry on teardown.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelTimersLocked()
}
