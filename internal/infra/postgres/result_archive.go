package postgres

import (
	"context"
	"fmt"

	"mathquiz-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

const defaultRecent = 100

// ResultArchive appends finished games to the game_results table.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) Record(ctx context.Context, result domain.Result) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO game_results (session_id, display_name, score, elapsed_ms, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		result.SessionID, result.DisplayName, result.Score, result.ElapsedMs, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first. A non-positive limit means defaultRecent.
func (a *ResultArchive) Recent(ctx context.Context, limit int) ([]domain.Result, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := a.pool.Query(ctx,
		`SELECT session_id, display_name, score, elapsed_ms, finished_at FROM game_results ORDER BY finished_at DESC, id DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.SessionID, &r.DisplayName, &r.Score, &r.ElapsedMs, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
