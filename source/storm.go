package source

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/poiesic/scholarly/fetch"
)

// StormRetriever is the retriever a STORM server is asked to search with.
const StormRetriever = "tavily"

// Storm asks a STORM server to write a research report on a topic. The
// server answers with a link to the report while it is being generated.
type Storm struct {
	fetcher   *fetch.Fetcher
	openAIKey string
	tavilyKey string
	baseURL   string
	logger    *slog.Logger
}

// NewStorm creates a STORM client. WithBaseURL is required.
func NewStorm(fetcher *fetch.Fetcher, openAIKey, tavilyKey string, opts ...Option) (*Storm, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if strings.TrimSpace(openAIKey) == "" || strings.TrimSpace(tavilyKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	o := buildOptions("", opts)
	if o.baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	return &Storm{
		fetcher:   fetcher,
		openAIKey: openAIKey,
		tavilyKey: tavilyKey,
		baseURL:   strings.TrimRight(o.baseURL, "/"),
		logger:    o.logger.With("component", "storm"),
	}, nil
}

// StormReport points at a report the server is generating.
type StormReport struct {
	Topic string
	URL   string
}

// Format renders the reply shown to a user who asked for the report.
func (r *StormReport) Format() string {
	return fmt.Sprintf("Generating research report for topic \"%s\"...\n\nLink: %s", r.Topic, r.URL)
}

// Generate starts a report on topic and returns its link.
func (s *Storm) Generate(ctx context.Context, topic string) (*StormReport, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyQuery
	}

	query := url.Values{}
	query.Set("open_api_key", s.openAIKey)
	query.Set("retriever", StormRetriever)
	query.Set("tavily_api_key", s.tavilyKey)
	query.Set("topic", topic)

	s.logger.Info("requesting research report", "topic", topic)
	endpoint := s.baseURL + "/article/generate"
	body, err := s.fetcher.Get(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		// The query string carries both API keys.
		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) {
			httpErr.URL = endpoint
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = endpoint
		}
		return nil, fmt.Errorf("%w: storm: %w", ErrSourceUnavailable, err)
	}

	link, err := parseStormLink(body)
	if err != nil {
		return nil, fmt.Errorf("%w: storm: %w", ErrSourceUnavailable, err)
	}
	s.logger.Debug("report started", "topic", topic, "url", link)
	return &StormReport{Topic: topic, URL: link}, nil
}

// stormReply matches both <url>...</url> and <response><url>...</url></response>.
type stormReply struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	URL     string `xml:"url"`
}

// parseStormLink reads the url field of a JSON or XML reply.
func parseStormLink(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	var link string
	if bytes.HasPrefix(body, []byte("{")) {
		var reply struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return "", fmt.Errorf("decoding reply: %w", err)
		}
		link = reply.URL
	} else {
		var reply stormReply
		if err := xml.Unmarshal(body, &reply); err != nil {
			return "", fmt.Errorf("decoding reply: %w", err)
		}
		link = reply.URL
		if reply.XMLName.Local == "url" {
			link = reply.Text
		}
	}

	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrReportLinkMissing
	}
	return link, nil
}
