package game

import "errors"

var (
	ErrInvalidPhase     = errors.New("invalid-phase")
	ErrUnknownPlayer    = errors.New("unknown-player")
	ErrAlreadyResponded = errors.New("already-responded")
	ErrAlreadyVoted     = errors.New("already-voted")
	ErrInvalidVote      = errors.New("invalid-vote")
	ErrRoundNotFinished = errors.New("round-not-finished")
	ErrRoomFull         = errors.New("room-full")
)
