package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/studyplan/internal/domain"
)

// GetAnswer looks up a cached answer by question hash.
func (db *DB) GetAnswer(ctx context.Context, hash string) (*domain.CachedAnswer, error) {
	var a domain.CachedAnswer
	row := db.conn.QueryRowContext(ctx, `
		SELECT question, answer, search_query
		FROM answers WHERE hash = ?
	`, hash)

	err := row.Scan(&a.Question, &a.Answer, &a.SearchQuery)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not cached
		}
		return nil, fmt.Errorf("failed to find answer for hash %s: %w", hash, err)
	}
	return &a, nil
}

// PutAnswer stores an answer under a question hash, overwriting any previous one.
func (db *DB) PutAnswer(ctx context.Context, hash string, a domain.CachedAnswer) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO answers (hash, question, answer, search_query, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			search_query = excluded.search_query,
			created_at = excluded.created_at
	`, hash, a.Question, a.Answer, a.SearchQuery, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store answer for hash %s: %w", hash, err)
	}
	return nil
}
