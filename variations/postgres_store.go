package variations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresGenerationStore implements GenerationStore backed by PostgreSQL.
// The generations table is created by migrations/000001_create_generations.
type PostgresGenerationStore struct {
	db *sql.DB
}

// NewPostgresGenerationStore creates a new PostgreSQL-backed GenerationStore
func NewPostgresGenerationStore(db *sql.DB) *PostgresGenerationStore {
	return &PostgresGenerationStore{db: db}
}

// Add inserts a generation
func (s *PostgresGenerationStore) Add(ctx context.Context, g *Generation) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM generations WHERE id = $1)
	`, g.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check generation existence: %w", err)
	}
	if exists {
		return fmt.Errorf("generation with ID %s already exists", g.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generations (id, indicator, case_name, total, kept, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.IndicatorName, g.Case, g.Total, g.Kept, g.Output, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	return nil
}

// Get retrieves a generation by ID
func (s *PostgresGenerationStore) Get(ctx context.Context, id string) (*Generation, error) {
	var g Generation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, indicator, case_name, total, kept, output, created_at
		FROM generations
		WHERE id = $1
	`, id).Scan(&g.ID, &g.IndicatorName, &g.Case, &g.Total, &g.Kept, &g.Output, &g.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGenerationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	return &g, nil
}

// ListRecent returns up to limit generations, newest first
func (s *PostgresGenerationStore) ListRecent(ctx context.Context, limit int) ([]*Generation, error) {
	query := `
		SELECT id, indicator, case_name, total, kept, output, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	list := []*Generation{}
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.IndicatorName, &g.Case, &g.Total, &g.Kept, &g.Output, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		list = append(list, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}

	return list, nil
}

// Delete removes a generation
func (s *PostgresGenerationStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM generations
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrGenerationNotFound, id)
	}

	return nil
}
