package storage

import (
	"context"

	"crptapi/internal/models"
)

// Storage defines the journal of completed submissions. Entries are written
// once, after the registry call has finished, and never modified.
type Storage interface {
	// RecordSubmission appends a completed submission. Returns ErrAlreadyExists
	// if the ID is already present.
	RecordSubmission(ctx context.Context, sub *models.Submission) error

	// GetSubmission retrieves a submission by its ID. Returns ErrNotFound if absent.
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)

	// Submissions returns up to limit submissions, newest first. A limit of zero
	// or less returns every entry.
	Submissions(ctx context.Context, limit int) ([]*models.Submission, error)

	// Count returns the number of journal entries.
	Count(ctx context.Context) (int, error)

	// Ping verifies the storage backend is reachable and operational.
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, sqlite, postgres, redis)
	Type string `json:"type" yaml:"type"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// MaxOpenConns bounds the database connection pool
	MaxOpenConns int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`

	// Redis holds the Redis journal settings
	Redis models.RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}
