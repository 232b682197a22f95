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

package reembed

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/core"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records embedded per EmbedTexts call
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MissingOnly limits the run to records that have no vector yet
	MissingOnly bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MissingOnly:    true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be greater than 0", ErrInvalidConfig)
	case c.ReportInterval <= 0:
		return fmt.Errorf("%w: report interval must be greater than 0", ErrInvalidConfig)
	case c.MaxRetries <= 0:
		return fmt.Errorf("%w: max retries must be greater than 0", ErrInvalidConfig)
	}
	return nil
}

// Store is the view of the record repository the reembedder needs.
type Store interface {
	VectorWriter
	Count(ctx context.Context, roomID string) (int, error)
	List(ctx context.Context, roomID string, limit int) ([]*core.IngestionRecord, error)
}

// Result summarizes a run.
type Result struct {
	Total    int // records in the room
	Embedded int // records given a new vector
	Skipped  int // records left alone because they already had one
}

// Reembedder orchestrates the reembedding of every record in a room.
type Reembedder struct {
	store     Store
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store Store, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		store:     store,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.MaxRetries, config.RetryDelay),
	}, nil
}

// Run embeds the records of a room in batches and reports progress.
func (r *Reembedder) Run(ctx context.Context, roomID string) (*Result, error) {
	total, err := r.store.Count(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in room %s\n", roomID)
		return result, nil
	}

	records, err := r.store.List(ctx, roomID, total)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	pending := records
	if r.config.MissingOnly {
		pending = slices.DeleteFunc(slices.Clone(records), func(record *core.IngestionRecord) bool {
			return len(record.Vector) > 0
		})
	}
	result.Skipped = len(records) - len(pending)
	if len(pending) == 0 {
		fmt.Fprintf(r.progress, "All %d records already have embeddings\n", len(records))
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d records (batch size: %d)\n",
		len(pending), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(pending), r.config.ReportInterval)
	tracker.Start()
	defer tracker.Finish()

	for batch := range slices.Chunk(pending, r.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.processor.Process(ctx, batch); err != nil {
			return result, fmt.Errorf("failed to process batch: %w", err)
		}
		result.Embedded += len(batch)
		tracker.Add(len(batch))
	}

	return result, nil
}
