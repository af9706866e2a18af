package storage

import (
	"context"
	"sort"
	"sync"

	"crptapi/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory data structures.
// This provider is ideal for development, testing, and scenarios where data
// persistence is not required. It provides fast access but data is lost on restart.
type MemoryStorage struct {
	mu          sync.RWMutex
	submissions map[string]*models.Submission
	order       []string // IDs in insertion order
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		submissions: make(map[string]*models.Submission),
	}, nil
}

// RecordSubmission stores a copy of sub.
func (m *MemoryStorage) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.submissions[sub.ID]; exists {
		return ErrAlreadyExists
	}

	// Store a copy to prevent external modification
	subCopy := *sub
	m.submissions[sub.ID] = &subCopy
	m.order = append(m.order, sub.ID)

	return nil
}

// GetSubmission retrieves a submission by its ID
func (m *MemoryStorage) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.submissions[id]
	if !exists {
		return nil, ErrNotFound
	}

	// Return a copy
	subCopy := *sub
	return &subCopy, nil
}

// Submissions returns up to limit submissions, newest first. Entries with equal
// creation times are returned in reverse insertion order.
func (m *MemoryStorage) Submissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Submission, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		subCopy := *m.submissions[m.order[i]]
		result = append(result, &subCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[j].CreatedAt.Before(result[i].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored submissions.
func (m *MemoryStorage) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order), nil
}

// Ping verifies the storage backend is reachable and operational.
func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close closes the storage connection and cleans up resources
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear all data
	m.submissions = make(map[string]*models.Submission)
	m.order = nil

	return nil
}
