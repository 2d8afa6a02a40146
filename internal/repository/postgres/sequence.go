package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
)

// PostgresSequenceRepository implements the SequenceRepository interface using PostgreSQL
type PostgresSequenceRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSequenceRepository creates a new PostgresSequenceRepository
func NewSequenceRepository(config *RepositoryConfig) repositories.SequenceRepository {
	return &PostgresSequenceRepository{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// UpsertBySession writes the sequence for its session, replacing any existing one
func (r *PostgresSequenceRepository) UpsertBySession(ctx context.Context, seq *models.Sequence) error {
	query := `
		INSERT INTO sequences (session_id, id, user_id, title, target_role, target_industry, steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			id = EXCLUDED.id,
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			target_role = EXCLUDED.target_role,
			target_industry = EXCLUDED.target_industry,
			steps = EXCLUDED.steps,
			updated_at = now()
		RETURNING created_at, updated_at
	`

	steps := seq.Steps
	if steps == nil {
		steps = []models.Step{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		seq.SessionID,
		seq.ID,
		seq.UserID,
		seq.Title,
		seq.TargetRole,
		seq.TargetIndustry,
		stepsJSON,
	).Scan(&seq.CreatedAt, &seq.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("session %s: %w", seq.SessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert sequence: %w", err)
	}

	return nil
}

// GetBySession retrieves the current sequence for a session
func (r *PostgresSequenceRepository) GetBySession(ctx context.Context, sessionID string) (*models.Sequence, error) {
	query := `
		SELECT session_id, id, user_id, title, target_role, target_industry, steps, created_at, updated_at
		FROM sequences
		WHERE session_id = $1
	`

	executor := GetExecutor(ctx, r.pool)
	seq, err := scanSequence(executor.QueryRow(ctx, query, sessionID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("sequence for session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	return seq, nil
}

// ListByUser retrieves all current sequences owned by a user
func (r *PostgresSequenceRepository) ListByUser(ctx context.Context, userID string) ([]models.Sequence, error) {
	query := `
		SELECT session_id, id, user_id, title, target_role, target_industry, steps, created_at, updated_at
		FROM sequences
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []models.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		sequences = append(sequences, *seq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}

	// Return empty slice instead of nil
	if sequences == nil {
		sequences = []models.Sequence{}
	}

	return sequences, nil
}

// DeleteBySession clears a session's sequence. Missing rows are not an error.
func (r *PostgresSequenceRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM sequences WHERE session_id = $1`

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("delete sequence: %w", err)
	}

	return nil
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSequence(row rowScanner) (*models.Sequence, error) {
	var (
		seq   models.Sequence
		steps []byte
	)
	err := row.Scan(
		&seq.SessionID,
		&seq.ID,
		&seq.UserID,
		&seq.Title,
		&seq.TargetRole,
		&seq.TargetIndustry,
		&steps,
		&seq.CreatedAt,
		&seq.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	seq.Steps = []models.Step{}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &seq.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	}
	if seq.Steps == nil {
		seq.Steps = []models.Step{}
	}

	return &seq, nil
}
