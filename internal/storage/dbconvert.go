package storage

import (
	"database/sql"
	"fmt"
	"time"

	"crptapi/internal/models"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// submissionColumns lists the journal columns in the order scanSubmission expects.
const submissionColumns = "id, doc_id, doc_type, outcome, status_code, error, duration_ns, created_at_ns"

// submissionArgs flattens a submission into query arguments matching submissionColumns.
func submissionArgs(sub *models.Submission) []any {
	return []any{
		sub.ID,
		nullString(sub.DocID),
		nullString(sub.DocType),
		string(sub.Outcome),
		int64(sub.StatusCode),
		nullString(sub.Error),
		sub.Duration.Nanoseconds(),
		sub.CreatedAt.UnixNano(),
	}
}

// scanSubmission reads one journal row into a submission.
func scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var docID, docType, errText sql.NullString
	var outcome string
	var statusCode, duration, at int64
	if err := row.Scan(&sub.ID, &docID, &docType, &outcome, &statusCode, &errText, &duration, &at); err != nil {
		return nil, err
	}

	sub.DocID = docID.String
	sub.DocType = docType.String
	sub.Outcome = models.Outcome(outcome)
	sub.StatusCode = int(statusCode)
	sub.Error = errText.String
	sub.Duration = time.Duration(duration)
	sub.CreatedAt = time.Unix(0, at).UTC()
	return &sub, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// limitClause renders the LIMIT suffix for a listing query.
func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}
