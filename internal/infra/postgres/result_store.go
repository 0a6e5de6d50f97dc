package postgres

import (
	"context"
	"fmt"

	"quizwhiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists quiz results in Postgres. ListPlayers returns players
// in first-seen order (players.created_at), which is the leaderboard's
// documented tie-break for equal totals.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.QuizResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save result: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO players (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`,
		result.PlayerID,
	); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO quiz_results (player_email, category, score, accuracy, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		result.PlayerID, result.Category, result.Score, result.Accuracy, result.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}

	return tx.Commit(ctx)
}

// RegisterPlayer stores or refreshes a display name.
func (s *ResultStore) RegisterPlayer(ctx context.Context, id, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO players (email, name) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("register player: %w", err)
	}
	return nil
}

func (s *ResultStore) ListPlayers(ctx context.Context, filter domain.ResultFilter) ([]domain.Player, error) {
	query := `
		SELECT p.email, p.name, r.category, r.score, r.accuracy, r.created_at
		FROM players p
		LEFT JOIN quiz_results r ON r.player_email = p.email`
	args := make([]interface{}, 0, 2)

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND r.category = $%d", len(args))
	}
	if filter.PlayerID != "" {
		args = append(args, filter.PlayerID)
		query += fmt.Sprintf(" WHERE p.email = $%d", len(args))
	}
	query += " ORDER BY p.created_at, p.email, r.created_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := make([]domain.Player, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			email, name string
			result      nullableResult
		)
		if err := rows.Scan(&email, &name, &result.category, &result.score, &result.accuracy, &result.createdAt); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}

		i, ok := index[email]
		if !ok {
			i = len(players)
			index[email] = i
			players = append(players, domain.Player{ID: email, Name: name})
		}
		if quizResult, ok := result.toDomain(email); ok {
			players[i].History = append(players[i].History, quizResult)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player rows: %w", err)
	}
	return players, nil
}
