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

package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/scholarly/core"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
// ErrSourceEmpty and ErrInvalidMax are final and never retried.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay << (attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func retryable(err error) bool {
	return !errors.Is(err, ErrSourceEmpty) && !errors.Is(err, ErrInvalidMax)
}

type retrying struct {
	Source
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps src so each ListCandidates call is retried with backoff.
// A maxAttempts of one or less returns src unchanged.
func WithRetry(src Source, maxAttempts int, baseDelay time.Duration) Source {
	if maxAttempts <= 1 {
		return src
	}
	return &retrying{Source: src, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *retrying) ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error) {
	var items []*core.CandidateItem
	err := RetryWithBackoff(ctx, func() error {
		var err error
		items, err = r.Source.ListCandidates(ctx, category, max)
		return err
	}, r.maxAttempts, r.baseDelay)
	return items, err
}
