package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/core"
)

const (
	// DefaultMinSimilarity is the semantic score a record needs to be recalled.
	DefaultMinSimilarity float32 = 0.60

	// DefaultScanWindow is how many recent records are scanned for keywords.
	DefaultScanWindow = 200

	keywordOnlyScore float32 = 0.9
	hybridBoost      float32 = 1.5
)

// Store is the read view of the record repository used for recall.
type Store interface {
	List(ctx context.Context, roomID string, limit int) ([]*core.IngestionRecord, error)
	FindSimilar(ctx context.Context, roomID string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)
}

// Searcher provides hybrid semantic and keyword recall over ingested records.
type Searcher struct {
	store         Store
	embedder      ai.Embedder
	minSimilarity float32
	scanWindow    int
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the semantic threshold.
// Default is DefaultMinSimilarity.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// WithScanWindow sets how many of a room's newest records are checked for a
// verbatim keyword match. Zero disables keyword matching.
func WithScanWindow(n int) Option {
	return func(s *Searcher) error {
		if n < 0 {
			n = 0
		}
		s.scanWindow = n
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store Store, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:         store,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		scanWindow:    DefaultScanWindow,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Recall finds records of a room relevant to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) Recall(ctx context.Context, roomID, query string, maxHits int) ([]*core.SimilarityMatch, error) {
	return s.RecallWithMonitor(ctx, roomID, query, maxHits, nil)
}

// RecallWithMonitor is Recall with hooks at each stage of the search.
//
// Scoring:
//   - semantic and keyword hit: 1.5 x similarity
//   - semantic hit only: similarity
//   - keyword hit only: 0.9
func (s *Searcher) RecallWithMonitor(ctx context.Context, roomID, query string, maxHits int, monitor RecallMonitor) ([]*core.SimilarityMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, ErrInvalidMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	logger := s.logger.With("room", roomID)
	monitor.Start(roomID, query)

	// 1. Semantic search
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.store.FindSimilar(ctx, roomID, ai.NormalizeVector(embedding), s.minSimilarity, maxHits)
	if err != nil {
		logger.Error("error querying for similar records", "err", err)
		return nil, err
	}

	semanticIDs := make([]string, 0, len(matches))
	semantic := make(map[string]*core.SimilarityMatch, len(matches))
	for _, match := range matches {
		semantic[match.Record.ID] = match
		semanticIDs = append(semanticIDs, match.Record.ID)
	}
	monitor.AfterSemanticSearch(semanticIDs)

	// 2. Verbatim keyword scan over recent records
	keyword := make(map[string]*core.IngestionRecord)
	var keywordIDs []string
	scanned := 0
	if queryTerms := terms(query); s.scanWindow > 0 && len(queryTerms) > 0 {
		recent, err := s.store.List(ctx, roomID, s.scanWindow)
		if err != nil {
			logger.Error("error listing records for keyword scan", "err", err)
			return nil, err
		}
		scanned = len(recent)
		for _, record := range recent {
			if containsAllTerms(record.Content, queryTerms) {
				keyword[record.ID] = record
				keywordIDs = append(keywordIDs, record.ID)
			}
		}
	}
	monitor.AfterKeywordScan(scanned, keywordIDs)

	// 3. Combine and score
	results := make([]*core.SimilarityMatch, 0, len(semantic)+len(keyword))
	for _, match := range matches {
		score := match.Score
		if _, ok := keyword[match.Record.ID]; ok {
			score = hybridBoost * match.Score
			monitor.SemanticAndKeywordHit(match.Record)
		} else {
			monitor.SemanticHit(match.Record)
		}
		results = append(results, &core.SimilarityMatch{Record: match.Record, Score: score})
	}
	for _, id := range keywordIDs {
		if _, ok := semantic[id]; ok {
			continue
		}
		record := keyword[id]
		monitor.KeywordHit(record)
		results = append(results, &core.SimilarityMatch{Record: record, Score: keywordOnlyScore})
	}

	// Stable so equal scores keep semantic order, then recency.
	slices.SortStableFunc(results, func(a, b *core.SimilarityMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)
	logger.Debug("recall complete", "query", query, "semantic", len(semantic), "keyword", len(keyword), "results", len(results))

	return results, nil
}
