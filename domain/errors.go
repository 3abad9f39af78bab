package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("database-error")
	ErrDuplicateUsername    = errors.New("duplicate-username")
	ErrUserNotFound         = errors.New("user-not-found")
	ErrPromptNotFound       = errors.New("prompt-not-found")
	ErrRoundNotFound        = errors.New("round-not-found")
)

var (
	UnexpectedPasswordHashComparisonError = errors.New("password-hash-comparison-error")
	HashingError                          = errors.New("hashing-error")
)

var (
	UnexpectedTokenGenerationError = errors.New("token-generation-error")
	ErrInvalidSigningAlg           = errors.New("invalid-signing-alg")
	ErrExpiredToken                = errors.New("expired-token")
	ErrInvalidTokenSignature       = errors.New("invalid-token-signature")
	ErrCorruptedToken              = errors.New("corrupted-token")
)
