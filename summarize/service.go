// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultPersona is the voice reviews are written in.
	DefaultPersona = "a research assistant"

	// DefaultMaxReviewLength is the character budget given to each review.
	DefaultMaxReviewLength = 280

	// DefaultCallInterval is the minimum spacing between model calls.
	DefaultCallInterval = 500 * time.Millisecond
)

// RecordLister is the read view of the store the service needs.
type RecordLister interface {
	List(ctx context.Context, roomID string, limit int) ([]*core.IngestionRecord, error)
}

// Digest is a synthesized summary of several records.
type Digest struct {
	RoomID  string
	Records []*core.IngestionRecord
	Text    string
}

// Review is the model's short commentary on a single record.
// Err is set when the review could not be produced.
type Review struct {
	RecordID string
	Title    string
	Text     string
	Err      error
}

// Service produces digests and reviews of stored records.
type Service struct {
	records         RecordLister
	summarizer      ai.Summarizer
	limiter         *rate.Limiter
	pool            *ants.Pool
	persona         string
	maxReviewLength int
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of reviews requested concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidPoolSize, size)
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithRateLimit sets the model call budget. Use rate.Inf to disable throttling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Service) error {
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithPersona sets whose perspective reviews are written from.
func WithPersona(persona string) Option {
	return func(s *Service) error {
		if strings.TrimSpace(persona) != "" {
			s.persona = persona
		}
		return nil
	}
}

// WithMaxReviewLength sets the character budget stated in review prompts.
func WithMaxReviewLength(n int) Option {
	return func(s *Service) error {
		if n > 0 {
			s.maxReviewLength = n
		}
		return nil
	}
}

// NewService creates a summarization service.
// Call Release when done to free the worker pool.
func NewService(records RecordLister, summarizer ai.Summarizer, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, ErrRecordsRequired
	}
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		records:         records,
		summarizer:      summarizer,
		limiter:         rate.NewLimiter(rate.Every(DefaultCallInterval), 1),
		pool:            pool,
		persona:         DefaultPersona,
		maxReviewLength: DefaultMaxReviewLength,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	s.logger = s.logger.With("component", "summarize")
	return s, nil
}

// Release frees the worker pool. The service must not be used afterwards.
func (s *Service) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// SummarizeRecent synthesizes the newest limit records of a room.
// Returns ErrNoRecords if the room is empty.
func (s *Service) SummarizeRecent(ctx context.Context, roomID string, limit int) (*Digest, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	records, err := s.records.List(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	s.logger.Debug("summarizing recent records", "room", roomID, "records", len(records))
	text, err := s.complete(ctx, buildDigestPrompt(records))
	if err != nil {
		return nil, fmt.Errorf("summarizing %d records: %w", len(records), err)
	}
	return &Digest{RoomID: roomID, Records: records, Text: text}, nil
}

// SummarizeRecords reviews each record concurrently. Reviews are returned in
// input order; a failed review carries its error rather than failing the
// whole batch. The returned error is non-nil only if ctx ends first.
func (s *Service) SummarizeRecords(ctx context.Context, records []*core.IngestionRecord) ([]Review, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	reviews := make([]Review, len(records))
	var wg sync.WaitGroup
	for i, record := range records {
		reviews[i] = Review{RecordID: record.ID, Title: record.Title}
		prompt := buildReviewPrompt(s.persona, s.maxReviewLength, record)

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			text, err := s.complete(ctx, prompt)
			if err != nil {
				s.logger.Warn("review failed", "id", record.ID, "err", err)
				reviews[i].Err = err
				return
			}
			reviews[i].Text = text
		})
		if err != nil {
			wg.Done()
			reviews[i].Err = fmt.Errorf("submitting review: %w", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return reviews, err
	}
	return reviews, nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	text, err := s.summarizer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
