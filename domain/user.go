package domain

import "strings"

type User struct {
	Id           string
	Username     string
	PasswordHash string
}

// PlayerStats are the per-account lifetime counters the reveal step
// feeds. DetectionAccuracy and DeceptionScore are derived columns,
// recomputed on every update.
type PlayerStats struct {
	GamesPlayed       int
	HumanWins         int
	DetectionScore    int
	DetectionAccuracy float64
	DeceptionScore    float64
}

type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	Username       string  `json:"username"`
	DeceptionScore float64 `json:"deception_score"`
	DetectionScore float64 `json:"detection_score"`
	OverallScore   float64 `json:"overall_score"`
	GamesPlayed    int     `json:"games_played"`
}

const GuestIdPrefix = "guest_"

// IsGuest reports whether an id belongs to an unauthenticated visitor.
// Guests play but never accumulate persisted stats.
func IsGuest(playerId string) bool {
	return strings.HasPrefix(playerId, GuestIdPrefix)
}
