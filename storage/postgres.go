package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skeehn/reverseturing/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool

	// trainingBatchSize is how many misjudged rounds accumulate before
	// they are grouped into a training batch.
	trainingBatchSize int
}

func NewPostgresRepo(ctx context.Context, connString string, trainingBatchSize int) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool, trainingBatchSize: trainingBatchSize}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func (pgr *PostgresRepo) GetPool() *pgxpool.Pool {
	return pgr.pool
}

// --- users ---

func (pgr *PostgresRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	user := domain.User{Username: username}

	row := pgr.pool.QueryRow(ctx, "SELECT id, password_hash FROM users WHERE username = $1", username)

	err := row.Scan(&user.Id, &user.PasswordHash)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return user, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pgr *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := pgr.pool.QueryRow(ctx, "SELECT username, password_hash FROM users WHERE id = $1", id)

	err := row.Scan(&user.Username, &user.PasswordHash)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (pgr *PostgresRepo) CreateUser(ctx context.Context, username string, passwordHash string) (string, error) {
	row := pgr.pool.QueryRow(ctx, "INSERT INTO users(username, password_hash) VALUES($1, $2) RETURNING id", username, passwordHash)

	var id string
	err := row.Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is the PostgreSQL error code for unique_violation
			if pgErr.Code == "23505" {
				return "", domain.ErrDuplicateUsername
			}
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return id, nil
}

// --- prompts ---

// RandomPrompt picks a random prompt for the room type and bumps its
// usage counter. The counter bump is best-effort.
func (pgr *PostgresRepo) RandomPrompt(ctx context.Context, roomType string) (domain.Prompt, error) {
	prompt := domain.Prompt{}

	row := pgr.pool.QueryRow(ctx, "SELECT id, text FROM prompts WHERE room_type = $1 ORDER BY RANDOM() LIMIT 1", roomType)

	err := row.Scan(&prompt.Id, &prompt.Text)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.Prompt{}, domain.ErrPromptNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.Prompt{}, err
		default:
			return domain.Prompt{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	pgr.pool.Exec(ctx, "UPDATE prompts SET times_used = times_used + 1 WHERE id = $1", prompt.Id)

	return prompt, nil
}

// --- rounds ---

func (pgr *PostgresRepo) SaveRoundSnapshot(ctx context.Context, snap domain.RoundSnapshot) error {
	var promptId any
	if snap.PromptId != 0 {
		promptId = snap.PromptId
	}

	_, err := pgr.pool.Exec(ctx, `
		INSERT INTO rounds(
			round_id, room_key, room_type, round_number, prompt_id, prompt_text,
			human_response, ai_response,
			judge_human_prob_human, judge_reasoning_human,
			judge_human_prob_ai, judge_reasoning_ai,
			started_at, duration_ms
		) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		snap.RoundId, snap.RoomKey, snap.RoomType, snap.RoundNumber, promptId, snap.PromptText,
		snap.HumanResponse, snap.AIResponse,
		snap.HumanJudgment.HumanProb, snap.HumanJudgment.Reasoning,
		snap.AIJudgment.HumanProb, snap.AIJudgment.Reasoning,
		snap.StartedAt, snap.DurationMs,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return nil
}

// UpdatePlayerStats folds one round's outcome into the player's
// lifetime counters. Guests have no account row; for them this is a
// no-op.
func (pgr *PostgresRepo) UpdatePlayerStats(ctx context.Context, playerId string, wonAsHuman, detectedCorrectly bool) error {
	if domain.IsGuest(playerId) {
		return nil
	}

	won, detected := 0, 0
	if wonAsHuman {
		won = 1
	}
	if detectedCorrectly {
		detected = 1
	}

	tag, err := pgr.pool.Exec(ctx, `
		UPDATE users SET
			games_played = games_played + 1,
			human_wins = human_wins + $2,
			detection_score = detection_score + $3,
			detection_accuracy = (detection_score + $3)::float / (games_played + 1),
			deception_score = (human_wins + $2)::float / (games_played + 1)
		WHERE id = $1`,
		playerId, won, detected,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// FlagForRetraining marks a misjudged round as training material and,
// once enough flagged rounds have piled up, groups the oldest
// unassigned ones into a new training batch.
func (pgr *PostgresRepo) FlagForRetraining(ctx context.Context, roundId string) error {
	tag, err := pgr.pool.Exec(ctx, "UPDATE rounds SET flagged_for_training = TRUE WHERE round_id = $1", roundId)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoundNotFound
	}

	var pending int
	row := pgr.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rounds WHERE flagged_for_training AND training_batch_id IS NULL")
	if err := row.Scan(&pending); err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	if pending < pgr.trainingBatchSize {
		return nil
	}

	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer tx.Rollback(ctx)

	var batchId int64
	row = tx.QueryRow(ctx, "INSERT INTO training_batches(status) VALUES('pending') RETURNING id")
	if err := row.Scan(&batchId); err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rounds SET training_batch_id = $1
		WHERE round_id IN (
			SELECT round_id FROM rounds
			WHERE flagged_for_training AND training_batch_id IS NULL
			ORDER BY started_at
			LIMIT $2
		)`,
		batchId, pgr.trainingBatchSize,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return nil
}

// --- leaderboard ---

// Leaderboard ranks players by the average of their deception and
// detection scores. Stats are lifetime totals kept on the users row,
// so roomType and period are accepted for API stability but do not
// narrow the ranking yet.
// TODO: move stats onto rounds so per-room and per-period rankings
// become queryable.
func (pgr *PostgresRepo) Leaderboard(ctx context.Context, roomType, period string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := pgr.pool.Query(ctx, `
		SELECT username, deception_score, detection_accuracy,
		       (deception_score + detection_accuracy) / 2 AS overall_score,
		       games_played
		FROM users
		WHERE games_played > 0
		ORDER BY overall_score DESC, games_played DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		entry := domain.LeaderboardEntry{}
		if err := rows.Scan(&entry.Username, &entry.DeceptionScore, &entry.DetectionScore, &entry.OverallScore, &entry.GamesPlayed); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return entries, nil
}
