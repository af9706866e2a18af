package storage

import "errors"

var (
	// ErrNotFound is returned when a submission does not exist in the journal.
	ErrNotFound = errors.New("submission not found")

	// ErrAlreadyExists is returned when a submission ID is recorded twice.
	ErrAlreadyExists = errors.New("submission already exists")
)
