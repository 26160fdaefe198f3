package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/studyplan/internal/domain"
)

var (
	ErrSetExists   = errors.New("qa set already exists")
	ErrSetNotFound = errors.New("qa set not found")
)

// SaveMode decides what happens when a set with the same name already exists.
type SaveMode string

const (
	SaveNew     SaveMode = "new"     // fail with ErrSetExists
	SaveReplace SaveMode = "replace" // drop the existing pairs first
	SaveAppend  SaveMode = "append"  // add after the existing pairs
)

// ParseSaveMode validates a save mode string; "" means SaveNew.
func ParseSaveMode(s string) (SaveMode, error) {
	switch m := SaveMode(s); m {
	case "":
		return SaveNew, nil
	case SaveNew, SaveReplace, SaveAppend:
		return m, nil
	}
	return "", fmt.Errorf("unknown save mode %q", s)
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// SaveSet stores pairs under name. Pairs always get fresh IDs.
func (db *DB) SaveSet(ctx context.Context, name string, pairs []domain.QAPair, mode SaveMode) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for set %s: %w", name, err)
	}
	defer tx.Rollback()

	now := time.Now()
	var setID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM qa_sets WHERE name = ?`, name).Scan(&setID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up set %s: %w", name, err)
	}

	switch mode {
	case SaveNew:
		if exists {
			return ErrSetExists
		}
	case SaveReplace:
		if exists {
			if _, err := tx.ExecContext(ctx, `DELETE FROM qa_pairs WHERE set_id = ?`, setID); err != nil {
				return fmt.Errorf("failed to clear set %s: %w", name, err)
			}
		}
	case SaveAppend:
		if !exists {
			return ErrSetNotFound
		}
	default:
		return fmt.Errorf("unknown save mode %q", mode)
	}

	if exists {
		if _, err := tx.ExecContext(ctx, `UPDATE qa_sets SET updated_at = ? WHERE id = ?`, now, setID); err != nil {
			return fmt.Errorf("failed to touch set %s: %w", name, err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO qa_sets (name, created_at, updated_at)
			VALUES (?, ?, ?)
		`, name, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert set %s: %w", name, err)
		}
		if setID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert ID for set %s: %w", name, err)
		}
	}

	var position int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM qa_pairs WHERE set_id = ?`, setID,
	).Scan(&position); err != nil {
		return fmt.Errorf("failed to find next position in set %s: %w", name, err)
	}

	for i, p := range pairs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO qa_pairs (id, set_id, position, question, answer, difficulty, search_query)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.NewString(),
			setID,
			position+i,
			p.Question,
			p.Answer,
			string(p.Difficulty),
			p.SearchQuery,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pair into set %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit set %s: %w", name, err)
	}
	return nil
}

// FindSetByName retrieves a set without its pairs.
func (db *DB) FindSetByName(ctx context.Context, name string) (*domain.QASet, error) {
	var s domain.QASet
	row := db.conn.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM qa_pairs p WHERE p.set_id = s.id)
		FROM qa_sets s WHERE s.name = ?
	`, name)

	err := row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.PairCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Set not found
		}
		return nil, fmt.Errorf("failed to find set by name %s: %w", name, err)
	}
	return &s, nil
}

// LoadSet retrieves a set and all of its pairs in order.
func (db *DB) LoadSet(ctx context.Context, name string) (*domain.QASet, error) {
	set, err := db.FindSetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, ErrSetNotFound
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, question, answer, difficulty, search_query
		FROM qa_pairs WHERE set_id = ?
		ORDER BY position
	`, set.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pairs for set %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.QAPair
		var difficulty string
		if err := rows.Scan(&p.ID, &p.Question, &p.Answer, &difficulty, &p.SearchQuery); err != nil {
			return nil, fmt.Errorf("failed to scan pair row for set %s: %w", name, err)
		}
		p.Difficulty = domain.Difficulty(difficulty)
		if p.Difficulty == "" {
			p.Difficulty = domain.Medium
		}
		set.Pairs = append(set.Pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs for set %s: %w", name, err)
	}
	return set, nil
}

// ListSets retrieves every set without pairs, ordered by name.
func (db *DB) ListSets(ctx context.Context) ([]domain.QASet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM qa_pairs p WHERE p.set_id = s.id)
		FROM qa_sets s
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	defer rows.Close()

	var sets []domain.QASet
	for rows.Next() {
		var s domain.QASet
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.PairCount); err != nil {
			return nil, fmt.Errorf("failed to scan set row: %w", err)
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// DeleteSet removes a set and its pairs.
func (db *DB) DeleteSet(ctx context.Context, name string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for set %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM qa_pairs
		WHERE set_id IN (SELECT id FROM qa_sets WHERE name = ?)
	`, name); err != nil {
		return fmt.Errorf("failed to delete pairs of set %s: %w", name, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM qa_sets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete set %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSetNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of set %s: %w", name, err)
	}
	return nil
}
