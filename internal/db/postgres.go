package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tl2cents/wagner-engine/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for the solver engine")
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the underlying pool for collaborators that share it
// (shadow runner persistence).
func (s *PostgresStore) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Solver run schema initialized")
	return nil
}

// SaveRun persists a completed run and its solutions in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertRunSQL := `
		INSERT INTO solver_runs
		(id, n, k, seed, strategy, trimmed_length, perfect_count, secondary_count,
		 predicted_bits, observed_bits, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err = tx.Exec(ctx, insertRunSQL,
		run.ID, run.N, run.K, run.Seed, run.Strategy, run.TrimmedLength,
		run.PerfectCount, run.SecondaryCount,
		run.PredictedBits, run.ObservedBits, run.DurationMs, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert solver_runs: %v", err)
	}

	if len(run.Solutions) > 0 {
		insertSolutionSQL := `
			INSERT INTO solver_solutions (run_id, ordinal, kind, indices)
			VALUES ($1, $2, $3, $4);
		`
		for i, sol := range run.Solutions {
			indices, err := json.Marshal(sol.Indices)
			if err != nil {
				return fmt.Errorf("failed to encode solution indices: %v", err)
			}
			if _, err := tx.Exec(ctx, insertSolutionSQL, run.ID, i, sol.Kind, indices); err != nil {
				return fmt.Errorf("failed to insert solver solution: %v", err)
			}
		}
	}

	return tx.Commit(ctx)
}

// ListRuns returns the most recent run summaries, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, n, k, seed, strategy, trimmed_length, perfect_count,
		       secondary_count, predicted_bits, observed_bits, duration_ms, created_at
		FROM solver_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var run models.RunRecord
		if err := rows.Scan(&run.ID, &run.N, &run.K, &run.Seed, &run.Strategy,
			&run.TrimmedLength, &run.PerfectCount, &run.SecondaryCount,
			&run.PredictedBits, &run.ObservedBits, &run.DurationMs, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one run with its solutions.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	var run models.RunRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, n, k, seed, strategy, trimmed_length, perfect_count,
		       secondary_count, predicted_bits, observed_bits, duration_ms, created_at
		FROM solver_runs WHERE id = $1`, id).
		Scan(&run.ID, &run.N, &run.K, &run.Seed, &run.Strategy,
			&run.TrimmedLength, &run.PerfectCount, &run.SecondaryCount,
			&run.PredictedBits, &run.ObservedBits, &run.DurationMs, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT kind, indices FROM solver_solutions WHERE run_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sol models.SolutionRecord
		var indices []byte
		if err := rows.Scan(&sol.Kind, &indices); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(indices, &sol.Indices); err != nil {
			return nil, fmt.Errorf("failed to decode solution indices: %v", err)
		}
		run.Solutions = append(run.Solutions, sol)
	}
	return &run, rows.Err()
}
