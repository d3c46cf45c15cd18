package db

import "errors"

// Domain-level database error sentinels.
var (
	// ErrStoreUnavailable wraps any failure talking to Postgres.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrKeywordNotFound = errors.New("keyword not found")
)
