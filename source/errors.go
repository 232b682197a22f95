package source

import "errors"

var (
	// ErrSourceUnavailable is returned when the upstream could not be reached or parsed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceEmpty is returned when the upstream returned no matching items.
	// It is a normal outcome, not a failure.
	ErrSourceEmpty = errors.New("source returned no items")

	// ErrFetcherRequired is returned when a source is built without a fetcher.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrAPIKeyRequired is returned when a web search source has no API key.
	ErrAPIKeyRequired = errors.New("API key is required")

	// ErrBaseURLRequired is returned when a client without a default endpoint
	// is built without WithBaseURL.
	ErrBaseURLRequired = errors.New("base URL is required")

	// ErrReportLinkMissing is returned when a report server replies without a link.
	ErrReportLinkMissing = errors.New("reply has no report link")

	// ErrEmptyQuery is returned when an on-demand search has no query text.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidMax is returned when the result bound is not positive.
	ErrInvalidMax = errors.New("max results must be positive")

	// ErrInvalidArxivID is returned for strings that are not arXiv identifiers.
	ErrInvalidArxivID = errors.New("invalid arXiv identifier")

	// ErrPaperNotFound is returned when an arXiv lookup matches nothing.
	ErrPaperNotFound = errors.New("paper not found")

	// ErrInvalidMaxAttempts is returned when retry attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
