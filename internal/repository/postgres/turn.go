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

// PostgresTurnRepository implements the TurnRepository interface using PostgreSQL
type PostgresTurnRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTurnRepository creates a new PostgresTurnRepository
func NewTurnRepository(config *RepositoryConfig) repositories.TurnRepository {
	return &PostgresTurnRepository{
		pool:   config.Pool,
		logger: config.Logger,
	}
}

// Append inserts a turn and fills in its generated ID and timestamp
func (r *PostgresTurnRepository) Append(ctx context.Context, turn *models.Turn) error {
	query := `
		INSERT INTO messages (session_id, user_id, role, content, tool_calls, tool_call_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	toolCalls, err := encodeToolCalls(turn.ToolCalls)
	if err != nil {
		return fmt.Errorf("encode tool calls: %w", err)
	}

	var userID *string
	if turn.UserID != "" {
		userID = &turn.UserID
	}

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		turn.SessionID,
		userID,
		turn.Role,
		turn.Content,
		toolCalls,
		turn.ToolCallID,
	).Scan(&turn.ID, &turn.CreatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("session %s: %w", turn.SessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("append turn: %w", err)
	}

	return nil
}

// ListBySession retrieves a session's turns in insertion order
func (r *PostgresTurnRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	query := `
		SELECT id, session_id, user_id, role, content, tool_calls, tool_call_id, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY id ASC
	`

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var (
			turn      models.Turn
			userID    *string
			toolCalls []byte
		)
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&userID,
			&turn.Role,
			&turn.Content,
			&toolCalls,
			&turn.ToolCallID,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if userID != nil {
			turn.UserID = *userID
		}
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &turn.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls for turn %d: %w", turn.ID, err)
			}
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Return empty slice instead of nil
	if turns == nil {
		turns = []models.Turn{}
	}

	return turns, nil
}

// encodeToolCalls serializes tool calls for the JSONB column, keeping
// NULL for turns without any.
func encodeToolCalls(calls []models.ToolCall) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	return json.Marshal(calls)
}
