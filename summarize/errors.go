package summarize

import "errors"

var (
	// ErrRecordsRequired is returned when a record lister is not provided.
	ErrRecordsRequired = errors.New("record lister required")

	// ErrSummarizerRequired is returned when a summarizer is not provided.
	ErrSummarizerRequired = errors.New("summarizer required")

	// ErrNoRecords is returned when there is nothing to summarize.
	ErrNoRecords = errors.New("no records to summarize")

	// ErrInvalidLimit is returned when a limit is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidPoolSize is returned when the worker pool size is not positive.
	ErrInvalidPoolSize = errors.New("pool size must be positive")
)
