package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/fetch"
)

// DefaultWebSearchURL is the Tavily search endpoint.
const DefaultWebSearchURL = "https://api.tavily.com/search"

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

// Results is a pointer so a body without the key can be told apart from an
// empty result list.
type searchResponse struct {
	Answer  string          `json:"answer"`
	Results *[]searchResult `json:"results"`
}

type searchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// WebSearch asks a web search API for the latest news about a topic.
type WebSearch struct {
	fetcher   *fetch.Fetcher
	apiKey    string
	baseURL   string
	converter *md.Converter
	logger    *slog.Logger
}

var _ Source = (*WebSearch)(nil)

// NewWebSearch creates a web search adapter issuing requests through fetcher.
func NewWebSearch(fetcher *fetch.Fetcher, apiKey string, opts ...Option) (*WebSearch, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	o := buildOptions(DefaultWebSearchURL, opts)
	return &WebSearch{
		fetcher:   fetcher,
		apiKey:    apiKey,
		baseURL:   o.baseURL,
		converter: md.NewConverter("", true, nil),
		logger:    o.logger.With("component", "websearch"),
	}, nil
}

// Tag returns core.SourceWebSearch.
func (w *WebSearch) Tag() core.SourceTag {
	return core.SourceWebSearch
}

// ListCandidates searches for the latest news about category.
func (w *WebSearch) ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error) {
	if max <= 0 {
		return nil, ErrInvalidMax
	}
	result, err := w.search(ctx, fmt.Sprintf("What is the latest news about %s?", category), max, category)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// SearchResult is the reply to an on-demand query: the search API's own
// answer, when it gives one, and the results backing it.
type SearchResult struct {
	Query  string
	Answer string
	Items  []*core.CandidateItem
}

// Search runs an arbitrary query and keeps the generated answer.
func (w *WebSearch) Search(ctx context.Context, query string, max int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if max <= 0 {
		return nil, ErrInvalidMax
	}
	return w.search(ctx, query, max, "")
}

func (w *WebSearch) search(ctx context.Context, query string, max int, category core.Category) (*SearchResult, error) {
	payload, err := json.Marshal(searchRequest{
		APIKey:        w.apiKey,
		Query:         query,
		MaxResults:    max,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	w.logger.Debug("searching", "query", query, "max", max)
	body, err := w.fetcher.PostJSON(ctx, w.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: websearch: %w", ErrSourceUnavailable, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: websearch: decoding response: %w", ErrSourceUnavailable, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: websearch: response has no results field", ErrSourceUnavailable)
	}
	results := *resp.Results
	if len(results) == 0 {
		return nil, ErrSourceEmpty
	}

	items := make([]*core.CandidateItem, 0, len(results))
	for _, result := range results {
		id, err := CanonicalURL(result.URL)
		if err != nil {
			w.logger.Warn("skipping result without usable URL", "url", result.URL, "error", err)
			continue
		}
		items = append(items, &core.CandidateItem{
			ID:          id,
			Title:       collapseSpace(result.Title),
			Body:        w.cleanBody(result.Content),
			URL:         result.URL,
			PublishedAt: parsePublished(result.PublishedDate),
			Source:      core.SourceWebSearch,
			Category:    category,
		})
		if len(items) == max {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: websearch: none of %d results had a usable URL", ErrSourceUnavailable, len(results))
	}
	return &SearchResult{
		Query:  query,
		Answer: strings.TrimSpace(resp.Answer),
		Items:  items,
	}, nil
}

// Format renders the answer followed by a numbered list of the results as
// markdown links. Without an answer only the list is rendered.
func (r *SearchResult) Format() string {
	var b strings.Builder
	if r.Answer != "" {
		b.WriteString(r.Answer)
		if len(r.Items) == 0 {
			return b.String()
		}
		b.WriteString("\n\nFor more details, you can check out these resources:\n")
	}
	for i, item := range r.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. [%s](%s)", i+1, item.Title, item.URL)
	}
	return b.String()
}

// cleanBody converts stray HTML in result snippets to markdown.
func (w *WebSearch) cleanBody(content string) string {
	content = strings.TrimSpace(content)
	if !strings.ContainsAny(content, "<>") {
		return content
	}
	markdown, err := w.converter.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(markdown)
}

// CanonicalURL normalizes a result URL into a stable identifier: the scheme
// and host are lowercased, the fragment is dropped and a trailing slash on the
// path is trimmed.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

var publishedLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

func parsePublished(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
