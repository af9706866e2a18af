package storage

import (
	"context"
	"errors"
	"fmt"

	"crptapi/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	seq           BIGSERIAL,
	id            TEXT PRIMARY KEY,
	doc_id        TEXT,
	doc_type      TEXT,
	outcome       TEXT NOT NULL,
	status_code   INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	duration_ns   BIGINT NOT NULL DEFAULT 0,
	created_at_ns BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions (created_at_ns DESC, seq DESC);
`

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresStorage implements the Storage interface using a pgx connection pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and ensures the
// journal table exists.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{
		pool: pool,
	}, nil
}

// RecordSubmission inserts a journal row.
func (ps *PostgresStorage) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	query := "INSERT INTO submissions (" + submissionColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	if _, err := ps.pool.Exec(ctx, query, submissionArgs(sub)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by its ID.
func (ps *PostgresStorage) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	row := ps.pool.QueryRow(ctx, "SELECT "+submissionColumns+" FROM submissions WHERE id = $1", id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// Submissions returns up to limit submissions, newest first.
func (ps *PostgresStorage) Submissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions ORDER BY created_at_ns DESC, seq DESC" + limitClause(limit)
	rows, err := ps.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]*models.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return subs, nil
}

// Count returns the number of journal rows.
func (ps *PostgresStorage) Count(ctx context.Context) (int, error) {
	var n int64
	if err := ps.pool.QueryRow(ctx, "SELECT COUNT(*) FROM submissions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return int(n), nil
}

// Ping verifies the database is reachable.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
