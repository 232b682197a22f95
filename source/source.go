// Package source turns a category into a batch of normalized candidate items.
//
// Two adapters are provided: Arxiv queries the arXiv Atom API by subject class,
// and WebSearch asks a Tavily-compatible search API for the latest news on a
// topic. Both issue every request through a *fetch.Fetcher and derive item IDs
// from the upstream's canonical identifier, never from titles.
//
// Storm is not a Source: it asks a STORM server for a research report on a
// topic and returns the link it answers with.
package source

import (
	"context"
	"log/slog"

	"github.com/poiesic/scholarly/core"
)

// Source lists candidate items for a category.
//
// ListCandidates returns at most max items in upstream order. It fails with an
// error wrapping ErrSourceUnavailable when the upstream errors or returns
// malformed data, and with ErrSourceEmpty when nothing matched.
type Source interface {
	Tag() core.SourceTag
	ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error)
}

type options struct {
	baseURL string
	logger  *slog.Logger
}

// Option configures a source adapter.
type Option func(*options)

// WithBaseURL overrides the upstream endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(baseURL string, opts []Option) options {
	o := options{baseURL: baseURL, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
