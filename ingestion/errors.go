package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when a source adapter is not provided.
	ErrSourceRequired = errors.New("source required")

	// ErrStoreRequired is returned when a dedup store is not provided.
	ErrStoreRequired = errors.New("dedup store required")

	// ErrAlreadyStarted is returned by Start when the scheduler is already running.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrNotStarted is returned by Stop when the scheduler is not running.
	ErrNotStarted = errors.New("scheduler not started")

	// ErrItemPanicked wraps a panic raised while storing a single item.
	ErrItemPanicked = errors.New("item processing panicked")

	// ErrInvalidConfig wraps every SchedulerConfig validation failure.
	ErrInvalidConfig = errors.New("invalid scheduler config")

	// ErrNoCategories is returned when the config lists no categories.
	ErrNoCategories = errors.New("at least one category is required")

	// ErrDuplicateCategory is returned when a category is listed twice.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrInvalidMaxResults is returned when MaxResultsPerCategory is not positive.
	ErrInvalidMaxResults = errors.New("max results per category must be positive")

	// ErrInvalidInterval is returned when CheckInterval is not positive or
	// shorter than the fetcher's minimum spacing.
	ErrInvalidInterval = errors.New("invalid check interval")
)
