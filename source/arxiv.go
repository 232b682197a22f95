package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/fetch"
)

// DefaultArxivURL is the arXiv query endpoint.
const DefaultArxivURL = "http://export.arxiv.org/api/query"

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	// 2301.00001, or the pre-2007 form hep-th/9901001 and math.GT/0309136
	arxivIDPattern = regexp.MustCompile(`^(\d{4}\.\d{4,5}|[a-z\-]+(\.[A-Z]{2})?/\d{7})$`)
)

// Arxiv lists recent papers for an arXiv subject class.
type Arxiv struct {
	fetcher *fetch.Fetcher
	baseURL string
	logger  *slog.Logger
}

var _ Source = (*Arxiv)(nil)

// NewArxiv creates an arXiv adapter issuing requests through fetcher.
func NewArxiv(fetcher *fetch.Fetcher, opts ...Option) (*Arxiv, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	o := buildOptions(DefaultArxivURL, opts)
	return &Arxiv{
		fetcher: fetcher,
		baseURL: o.baseURL,
		logger:  o.logger.With("component", "arxiv"),
	}, nil
}

// Tag returns core.SourceArxiv.
func (a *Arxiv) Tag() core.SourceTag {
	return core.SourceArxiv
}

// ListCandidates returns the most recently submitted papers in category.
func (a *Arxiv) ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error) {
	if max <= 0 {
		return nil, ErrInvalidMax
	}
	params := url.Values{
		"search_query": {"cat:" + string(category)},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(max)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	items, err := a.query(ctx, params, category)
	if err != nil {
		return nil, err
	}
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

// Search runs a free-text arXiv query ordered by relevance.
func (a *Arxiv) Search(ctx context.Context, query string, max int) ([]*core.CandidateItem, error) {
	if max <= 0 {
		return nil, ErrInvalidMax
	}
	params := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(max)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	return a.query(ctx, params, "")
}

// GetPaper looks up a single paper. id may be a bare identifier, an
// "arxiv:" reference or an abstract URL.
func (a *Arxiv) GetPaper(ctx context.Context, id string) (*core.CandidateItem, error) {
	canonical, err := ParseArxivID(id)
	if err != nil {
		return nil, err
	}
	items, err := a.query(ctx, url.Values{"id_list": {canonical}}, "")
	if err != nil {
		if errors.Is(err, ErrSourceEmpty) {
			return nil, fmt.Errorf("%w: %s", ErrPaperNotFound, canonical)
		}
		return nil, err
	}
	return items[0], nil
}

func (a *Arxiv) query(ctx context.Context, params url.Values, category core.Category) ([]*core.CandidateItem, error) {
	endpoint := a.baseURL + "?" + params.Encode()
	a.logger.Debug("querying arXiv", "url", endpoint)

	body, err := a.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: arxiv: %w", ErrSourceUnavailable, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: arxiv: parsing feed: %w", ErrSourceUnavailable, err)
	}

	items := make([]*core.CandidateItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		// The API reports query errors as a single entry under /api/errors.
		if strings.Contains(entry.GUID, "/api/errors") {
			return nil, fmt.Errorf("%w: arxiv: %s", ErrSourceUnavailable, collapseSpace(entry.Description))
		}
		item, err := arxivItem(entry, category)
		if err != nil {
			a.logger.Warn("skipping malformed entry", "guid", entry.GUID, "error", err)
			continue
		}
		items = append(items, item)
	}

	switch {
	case len(feed.Items) == 0:
		return nil, ErrSourceEmpty
	case len(items) == 0:
		return nil, fmt.Errorf("%w: arxiv: none of %d entries could be read", ErrSourceUnavailable, len(feed.Items))
	}
	return items, nil
}

func arxivItem(entry *gofeed.Item, category core.Category) (*core.CandidateItem, error) {
	id, err := ParseArxivID(entry.GUID)
	if err != nil {
		return nil, err
	}

	link := entry.Link
	if link == "" {
		link = entry.GUID
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			authors = append(authors, author.Name)
		}
	}

	return &core.CandidateItem{
		ID:          id,
		Title:       collapseSpace(entry.Title),
		Body:        collapseSpace(entry.Description),
		URL:         link,
		Authors:     authors,
		PublishedAt: timeOrZero(entry.PublishedParsed),
		UpdatedAt:   timeOrZero(entry.UpdatedParsed),
		Source:      core.SourceArxiv,
		Category:    category,
	}, nil
}

// ParseArxivID extracts the version-less canonical identifier from s.
// Accepted forms are "2301.00001", "2301.00001v2", "arxiv:2301.00001" and
// "http://arxiv.org/abs/2301.00001v2".
func ParseArxivID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if len(id) >= 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = id[6:]
	}
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	id = versionSuffix.ReplaceAllString(strings.TrimSpace(id), "")
	if !arxivIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidArxivID, s)
	}
	return id, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
