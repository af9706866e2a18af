package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crptapi/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	doc_id        TEXT,
	doc_type      TEXT,
	outcome       TEXT NOT NULL,
	status_code   INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	duration_ns   INTEGER NOT NULL DEFAULT 0,
	created_at_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions (created_at_ns);
`

// SQLiteStorage keeps the journal in a SQLite database using the pure Go
// modernc.org/sqlite driver.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database named by the connection string and
// creates the journal table if needed.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases from being split across connections.
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{
		db: db,
	}, nil
}

// RecordSubmission inserts a journal row.
func (ss *SQLiteStorage) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	query := "INSERT INTO submissions (" + submissionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := ss.db.ExecContext(ctx, query, submissionArgs(sub)...); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by its ID
func (ss *SQLiteStorage) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	row := ss.db.QueryRowContext(ctx, "SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// Submissions returns up to limit submissions, newest first.
func (ss *SQLiteStorage) Submissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions ORDER BY created_at_ns DESC, rowid DESC" + limitClause(limit)
	rows, err := ss.db.QueryContext(ctx, query)
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
func (ss *SQLiteStorage) Count(ctx context.Context) (int, error) {
	var n int
	if err := ss.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}
