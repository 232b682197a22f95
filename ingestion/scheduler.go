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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/source"
	"github.com/poiesic/scholarly/storage"
)

// Scheduler runs ingestion cycles for one source on a fixed cadence.
type Scheduler struct {
	config   SchedulerConfig
	source   source.Source
	store    storage.DedupStore
	embedder *recordEmbedder
	monitor  CycleMonitor
	logger   *slog.Logger

	minInterval time.Duration
	now         func() time.Time
	after       func(d time.Duration) <-chan time.Time

	// cycleMu serializes cycles, including ones run directly via RunCycle.
	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	last    *CycleReport
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEmbedder attaches an embedding to every new record before it is stored.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(s *Scheduler) error {
		s.embedder = nil
		if embedder != nil {
			s.embedder = &recordEmbedder{embedder: embedder}
		}
		return nil
	}
}

// WithMonitor installs hooks that observe each cycle.
func WithMonitor(monitor CycleMonitor) Option {
	return func(s *Scheduler) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithMinInterval rejects configs whose CheckInterval is shorter than d.
// Pass the fetcher's minimum spacing.
func WithMinInterval(d time.Duration) Option {
	return func(s *Scheduler) error {
		s.minInterval = d
		return nil
	}
}

// WithClock replaces the time source and the delay primitive used between
// cycles. Intended for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) error {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.after = after
		}
		return nil
	}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(config SchedulerConfig, src source.Source, store storage.DedupStore, opts ...Option) (*Scheduler, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		config:  config.clone(),
		source:  src,
		store:   store,
		monitor: &noopMonitor{},
		logger:  slog.Default(),
		now:     time.Now,
		after:   time.After,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler", "source", src.Tag())
	if s.embedder != nil {
		s.embedder.logger = s.logger.With("processor", "embeddings")
	}

	if s.config.CheckInterval < s.minInterval {
		return nil, fmt.Errorf("%w: %w: %s is shorter than the fetcher spacing %s",
			ErrInvalidConfig, ErrInvalidInterval, s.config.CheckInterval, s.minInterval)
	}
	return s, nil
}

// Config returns a copy of the scheduler's configuration.
func (s *Scheduler) Config() SchedulerConfig {
	return s.config.clone()
}

// Running reports whether the scheduler is between Start and Stop.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the report of the most recent completed cycle, or nil.
func (s *Scheduler) LastReport() *CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Start runs one cycle synchronously and then schedules a cycle every
// CheckInterval after the previous one returns. Canceling ctx stops further
// scheduling but never interrupts a cycle in progress; once the loop exits
// the scheduler reports not running and may be started again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	s.mu.Unlock()

	s.logger.Info("starting scheduler",
		"categories", len(s.config.Categories),
		"interval", s.config.CheckInterval)

	s.RunCycle(context.WithoutCancel(ctx))
	go s.loop(ctx, stop, done)
	return nil
}

// Stop prevents further cycles from being scheduled and waits for the
// in-flight cycle, if any, to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	cycleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stop:
			return
		default:
		}

		wait := s.after(s.config.CheckInterval)
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.logger.Info("context canceled, no further cycles", "err", ctx.Err())
			s.mu.Lock()
			if s.done == done {
				s.running = false
			}
			s.mu.Unlock()
			return
		case <-wait:
		}

		// A stop that raced with the timer wins.
		select {
		case <-stop:
			return
		default:
		}

		s.RunCycle(cycleCtx)
	}
}

// RunCycle performs one pass over every configured category. It never fails;
// per-category and per-item failures are collected in the returned report.
func (s *Scheduler) RunCycle(ctx context.Context) *CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	report := &CycleReport{
		RoomID:     s.config.RoomID,
		StartedAt:  s.now(),
		Categories: make([]CategoryResult, 0, len(s.config.Categories)),
	}
	s.monitor.CycleStarted(s.config.RoomID)

	for _, category := range s.config.Categories {
		report.Categories = append(report.Categories, s.processCategory(ctx, category, report))
	}

	report.FinishedAt = s.now()
	s.monitor.CycleFinished(report)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	level := slog.LevelInfo
	if len(report.Failures) > 0 {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "ingestion cycle complete",
		"stored", report.Stored(),
		"skipped", report.Skipped(),
		"failures", len(report.Failures),
		"duration", report.Duration())
	return report
}

func (s *Scheduler) processCategory(ctx context.Context, category core.Category, report *CycleReport) CategoryResult {
	result := CategoryResult{Category: category}
	logger := s.logger.With("category", category)

	fail := func(itemID string, kind FailureKind, err error) {
		failure := CategoryFailure{Category: category, ItemID: itemID, Kind: kind, Err: err}
		report.Failures = append(report.Failures, failure)
		s.monitor.Failure(failure)
		logger.Warn("ingestion failure", "item", itemID, "kind", kind, "err", err)
	}

	items, err := s.listCandidates(ctx, category)
	switch {
	case errors.Is(err, source.ErrSourceEmpty):
		logger.Debug("source returned no items")
		result.Empty = true
		s.monitor.CategoryListed(category, 0)
		return result
	case err != nil:
		result.Failed = true
		fail("", FailureSourceUnavailable, err)
		return result
	}

	if len(items) > s.config.MaxResultsPerCategory {
		items = items[:s.config.MaxResultsPerCategory]
	}
	result.Fetched = len(items)
	s.monitor.CategoryListed(category, len(items))

	for _, item := range items {
		s.processItem(ctx, item, &result, fail)
	}
	return result
}

// processItem stores one candidate. A panic in the store or embedder is
// recorded as a failure of the phase it happened in.
func (s *Scheduler) processItem(ctx context.Context, item *core.CandidateItem, result *CategoryResult, fail func(string, FailureKind, error)) {
	if err := core.ValidateCandidate(item); err != nil {
		id := ""
		if item != nil {
			id = item.ID
		}
		fail(id, FailureInvalidItem, err)
		return
	}

	phase := FailureStoreRead
	defer func() {
		if r := recover(); r != nil {
			fail(item.ID, phase, fmt.Errorf("%w: panic: %v", ErrItemPanicked, r))
		}
	}()

	exists, err := s.store.Exists(ctx, item.ID)
	if err != nil {
		fail(item.ID, FailureStoreRead, err)
		return
	}
	if exists {
		result.Skipped++
		s.monitor.ItemSkipped(item)
		return
	}

	phase = FailureStoreWrite
	record := core.NewRecord(item, s.config.RoomID, s.now())
	s.embedder.embed(ctx, record)

	if err := s.store.Put(ctx, record); err != nil {
		fail(item.ID, FailureStoreWrite, err)
		return
	}
	result.Stored++
	s.monitor.ItemStored(record)
	s.logger.Debug("stored record", "category", item.Category, "id", record.ID, "title", record.Title)
}

// listCandidates calls the source, converting a panic into a category failure.
func (s *Scheduler) listCandidates(ctx context.Context, category core.Category) (items []*core.CandidateItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: source panicked: %v", source.ErrSourceUnavailable, r)
		}
	}()
	return s.source.ListCandidates(ctx, category, s.config.MaxResultsPerCategory)
}
