package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crptapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSubmission builds a submission created offset after base.
func newTestSubmission(docID string, base time.Time, offset time.Duration) *models.Submission {
	sub := models.NewSubmission(docID, "LP_INTRODUCE_GOODS")
	sub.CreatedAt = base.Add(offset)
	sub.Outcome = models.OutcomeSuccess
	sub.Duration = 150 * time.Millisecond
	return sub
}

// testJournal exercises the behavior every Storage implementation shares.
func testJournal(t *testing.T, s Storage) {
	ctx := context.Background()
	base := time.Date(2024, 1, 23, 10, 0, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		subs, err := s.Submissions(ctx, 10)
		require.NoError(t, err)
		assert.NotNil(t, subs)
		assert.Empty(t, subs)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		_, err = s.GetSubmission(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Record And Get", func(t *testing.T) {
		sub := newTestSubmission("doc-get", base, 0)
		sub.Outcome = models.OutcomeStatus
		sub.StatusCode = 503
		sub.Error = "registry responded with HTTP status 503"

		require.NoError(t, s.RecordSubmission(ctx, sub))

		got, err := s.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, "doc-get", got.DocID)
		assert.Equal(t, "LP_INTRODUCE_GOODS", got.DocType)
		assert.Equal(t, models.OutcomeStatus, got.Outcome)
		assert.Equal(t, 503, got.StatusCode)
		assert.Equal(t, sub.Error, got.Error)
		assert.Equal(t, 150*time.Millisecond, got.Duration)
		assert.True(t, sub.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", got.CreatedAt, sub.CreatedAt)
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		sub := newTestSubmission("doc-dup", base, time.Second)
		require.NoError(t, s.RecordSubmission(ctx, sub))
		assert.ErrorIs(t, s.RecordSubmission(ctx, sub), ErrAlreadyExists)
	})

	t.Run("Newest First", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			sub := newTestSubmission(fmt.Sprintf("doc-order-%d", i), base, time.Duration(10+i)*time.Minute)
			require.NoError(t, s.RecordSubmission(ctx, sub))
		}

		subs, err := s.Submissions(ctx, 3)
		require.NoError(t, err)
		require.Len(t, subs, 3)
		assert.Equal(t, "doc-order-4", subs[0].DocID)
		assert.Equal(t, "doc-order-3", subs[1].DocID)
		assert.Equal(t, "doc-order-2", subs[2].DocID)

		all, err := s.Submissions(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 7)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "entries must be sorted newest first")
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("Returned Copies", func(t *testing.T) {
		subs, err := s.Submissions(ctx, 1)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		id := subs[0].ID
		subs[0].DocID = "mutated"

		got, err := s.GetSubmission(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", got.DocID)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
