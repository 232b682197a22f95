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

// Package scholarly wires the memory store, source adapters, ingestion
// schedulers and optional AI services described by a config.Config.
package scholarly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/ai/openai"
	"github.com/poiesic/scholarly/config"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/fetch"
	"github.com/poiesic/scholarly/ingestion"
	"github.com/poiesic/scholarly/search"
	"github.com/poiesic/scholarly/source"
	"github.com/poiesic/scholarly/storage"
	"github.com/poiesic/scholarly/storage/badger"
	"github.com/poiesic/scholarly/storage/sqlite"
	"github.com/poiesic/scholarly/summarize"
)

// Room names combined with the agent id to derive destination rooms.
const (
	ArxivRoomName     = "arxiv-papers"
	WebSearchRoomName = "webresearch"
)

// retryBaseDelay is the first backoff step when a source call fails.
const retryBaseDelay = 2 * time.Second

var (
	// ErrConfigRequired is returned when no configuration is provided.
	ErrConfigRequired = errors.New("config required")

	// ErrAIDisabled is returned when an AI-backed service is requested but
	// no provider is configured.
	ErrAIDisabled = errors.New("AI services are not enabled")

	// ErrSourceDisabled is returned when a disabled source is requested.
	ErrSourceDisabled = errors.New("source is not enabled")
)

// Service owns every long-lived component of a scholarly agent.
type Service struct {
	config     *config.Config
	store      storage.RecordRepository
	closeStore func() error
	provider   ai.AIProvider

	arxiv      *source.Arxiv
	webSearch  *source.WebSearch
	storm      *source.Storm
	schedulers []*ingestion.Scheduler
	summarizer *summarize.Service
	searcher   *search.Searcher

	logger *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	store       storage.RecordRepository
	provider    ai.AIProvider
	httpClient  fetch.HTTPDoer
	monitor     ingestion.CycleMonitor
	schedOpts   []ingestion.Option
	summaryOpts []summarize.Option
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

// WithStore uses store instead of opening the configured backend.
// The caller keeps ownership; Close does not close it.
func WithStore(store storage.RecordRepository) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAIProvider uses provider instead of building one from the ai section.
// AI features are enabled whenever a provider is given.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithHTTPClient sets the client used by every source fetcher.
func WithHTTPClient(client fetch.HTTPDoer) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithCycleMonitor installs hooks on every scheduler.
func WithCycleMonitor(monitor ingestion.CycleMonitor) Option {
	return func(o *options) {
		o.monitor = monitor
	}
}

// WithSchedulerOptions passes extra options to every scheduler.
func WithSchedulerOptions(opts ...ingestion.Option) Option {
	return func(o *options) {
		o.schedOpts = append(o.schedOpts, opts...)
	}
}

// WithSummarizeOptions passes extra options to the summarization service.
func WithSummarizeOptions(opts ...summarize.Option) Option {
	return func(o *options) {
		o.summaryOpts = append(o.summaryOpts, opts...)
	}
}

// New opens the store and builds every enabled component. Schedulers are
// created stopped; call Start to begin ingesting.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	s := &Service{
		config:   cfg,
		provider: o.provider,
		logger:   o.logger.With("component", "scholarly", "agent", cfg.AgentID),
	}

	if o.store != nil {
		s.store = o.store
		s.closeStore = func() error { return nil }
	} else if err := s.openStore(); err != nil {
		return nil, err
	}

	if s.provider == nil && cfg.AI.Enabled {
		provider, err := openai.NewProvider(&cfg.AI.Config)
		if err != nil {
			s.closeStore()
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
		s.provider = provider
	}

	if err := s.build(o); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) openStore() error {
	path := s.config.StorePath()
	switch s.config.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("opening sqlite store %s: %w", path, err)
		}
		s.store, s.closeStore = store, store.Close
	default:
		backend, err := badger.OpenBackend(path, false)
		if err != nil {
			return fmt.Errorf("opening badger store %s: %w", path, err)
		}
		s.store, s.closeStore = badger.NewRecordRepository(backend), backend.Close
	}
	s.logger.Info("opened store", "backend", s.config.Store, "path", path)
	return nil
}

func (s *Service) build(o *options) error {
	schedOpts := []ingestion.Option{ingestion.WithLogger(o.logger)}
	if o.monitor != nil {
		schedOpts = append(schedOpts, ingestion.WithMonitor(o.monitor))
	}
	if s.provider != nil {
		schedOpts = append(schedOpts, ingestion.WithEmbedder(s.provider.Embedder()))
	}
	schedOpts = append(schedOpts, o.schedOpts...)

	if s.config.Arxiv.Enabled {
		f, err := s.newFetcher(o, s.config.Arxiv.Delay())
		if err != nil {
			return fmt.Errorf("arxiv fetcher: %w", err)
		}
		s.arxiv, err = source.NewArxiv(f, source.WithBaseURL(s.config.Arxiv.BaseURL), source.WithLogger(o.logger))
		if err != nil {
			return err
		}
		if err := s.addScheduler(s.arxiv, s.ArxivRoom(), s.config.Arxiv, f, schedOpts); err != nil {
			return fmt.Errorf("arxiv scheduler: %w", err)
		}
	}

	if s.config.WebSearch.Enabled {
		f, err := s.newFetcher(o, s.config.WebSearch.Delay())
		if err != nil {
			return fmt.Errorf("web search fetcher: %w", err)
		}
		s.webSearch, err = source.NewWebSearch(f, s.config.WebSearch.APIKey,
			source.WithBaseURL(s.config.WebSearch.BaseURL), source.WithLogger(o.logger))
		if err != nil {
			return err
		}
		if err := s.addScheduler(s.webSearch, s.WebSearchRoom(), s.config.WebSearch, f, schedOpts); err != nil {
			return fmt.Errorf("web search scheduler: %w", err)
		}
	}

	if s.config.Storm.Enabled {
		f, err := s.newFetcher(o, 0)
		if err != nil {
			return fmt.Errorf("storm fetcher: %w", err)
		}
		s.storm, err = source.NewStorm(f, s.config.Storm.OpenAIAPIKey, s.config.WebSearch.APIKey,
			source.WithBaseURL(s.config.Storm.BaseURL), source.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("storm: %w", err)
		}
	}

	if s.provider != nil {
		var err error
		summaryOpts := append([]summarize.Option{
			summarize.WithLogger(o.logger),
			summarize.WithPersona(s.config.AgentID),
		}, o.summaryOpts...)
		s.summarizer, err = summarize.NewService(s.store, s.provider.Summarizer(), summaryOpts...)
		if err != nil {
			return fmt.Errorf("summarizer: %w", err)
		}
		s.searcher, err = search.NewSearcher(s.store, s.provider.Embedder(), search.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("searcher: %w", err)
		}
	}
	return nil
}

// newFetcher gives each source its own throttle.
func (s *Service) newFetcher(o *options, minDelay time.Duration) (*fetch.Fetcher, error) {
	fetchOpts := []fetch.Option{fetch.WithMinDelay(minDelay), fetch.WithLogger(o.logger)}
	if o.httpClient != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(o.httpClient))
	}
	return fetch.New(fetchOpts...)
}

func (s *Service) addScheduler(src source.Source, roomID string, sc config.SourceConfig, f *fetch.Fetcher, opts []ingestion.Option) error {
	categories := make([]core.Category, len(sc.Categories))
	for i, c := range sc.Categories {
		categories[i] = core.Category(c)
	}
	schedOpts := append([]ingestion.Option{ingestion.WithMinInterval(f.MinDelay())}, opts...)
	scheduler, err := ingestion.NewScheduler(ingestion.SchedulerConfig{
		RoomID:                roomID,
		Categories:            categories,
		MaxResultsPerCategory: sc.MaxResults,
		CheckInterval:         sc.Interval(),
	}, source.WithRetry(src, sc.RetryAttempts, retryBaseDelay), s.store, schedOpts...)
	if err != nil {
		return err
	}
	s.schedulers = append(s.schedulers, scheduler)
	return nil
}

// ArxivRoom returns the room arXiv papers are written to.
func (s *Service) ArxivRoom() string {
	return core.RoomID(ArxivRoomName, s.config.AgentID)
}

// WebSearchRoom returns the room web results are written to.
func (s *Service) WebSearchRoom() string {
	return core.RoomID(WebSearchRoomName, s.config.AgentID)
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Store returns the record repository.
func (s *Service) Store() storage.RecordRepository {
	return s.store
}

// Schedulers returns the schedulers of every enabled source.
func (s *Service) Schedulers() []*ingestion.Scheduler {
	return s.schedulers
}

// Arxiv returns the arXiv adapter for on-demand lookups.
func (s *Service) Arxiv() (*source.Arxiv, error) {
	if s.arxiv == nil {
		return nil, fmt.Errorf("%w: arxiv", ErrSourceDisabled)
	}
	return s.arxiv, nil
}

// WebSearch returns the web search adapter for on-demand queries.
func (s *Service) WebSearch() (*source.WebSearch, error) {
	if s.webSearch == nil {
		return nil, fmt.Errorf("%w: web_search", ErrSourceDisabled)
	}
	return s.webSearch, nil
}

// Storm returns the research report client.
func (s *Service) Storm() (*source.Storm, error) {
	if s.storm == nil {
		return nil, fmt.Errorf("%w: storm", ErrSourceDisabled)
	}
	return s.storm, nil
}

// Embedder returns the embedding client of the AI provider.
func (s *Service) Embedder() (ai.Embedder, error) {
	if s.provider == nil {
		return nil, ErrAIDisabled
	}
	return s.provider.Embedder(), nil
}

// Summarizer returns the summarization service.
func (s *Service) Summarizer() (*summarize.Service, error) {
	if s.summarizer == nil {
		return nil, ErrAIDisabled
	}
	return s.summarizer, nil
}

// Searcher returns the recall service.
func (s *Service) Searcher() (*search.Searcher, error) {
	if s.searcher == nil {
		return nil, ErrAIDisabled
	}
	return s.searcher, nil
}

// Start starts every scheduler. Each runs its first cycle before Start
// moves on to the next. If one fails to start, or ctx is canceled between
// two starts, the ones already started are stopped again.
func (s *Service) Start(ctx context.Context) error {
	for i, scheduler := range s.schedulers {
		err := ctx.Err()
		if err == nil {
			err = scheduler.Start(ctx)
		}
		if err != nil {
			for _, started := range s.schedulers[:i] {
				if started.Running() {
					started.Stop()
				}
			}
			return err
		}
	}
	s.logger.Info("service started", "schedulers", len(s.schedulers))
	return nil
}

// Stop stops every running scheduler, waiting for in-flight cycles.
func (s *Service) Stop() error {
	var errs []error
	for _, scheduler := range s.schedulers {
		if !scheduler.Running() {
			continue
		}
		if err := scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunOnce runs one cycle on every scheduler without starting them.
func (s *Service) RunOnce(ctx context.Context) []*ingestion.CycleReport {
	reports := make([]*ingestion.CycleReport, 0, len(s.schedulers))
	for _, scheduler := range s.schedulers {
		reports = append(reports, scheduler.RunCycle(ctx))
	}
	return reports
}

// Close stops the schedulers and releases every resource.
func (s *Service) Close() error {
	if err := s.Stop(); err != nil {
		s.logger.Error("error stopping schedulers", "err", err)
	}
	if s.summarizer != nil {
		s.summarizer.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			s.logger.Error("error closing store", "err", err)
			return err
		}
	}
	return nil
}
