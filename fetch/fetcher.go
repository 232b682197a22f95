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

// Package fetch throttles outbound HTTP calls to an upstream data source.
//
// A Fetcher enforces a minimum gap between the start of any two consecutive
// requests issued through it. There is no burst allowance: a caller arriving
// early is suspended until exactly MinDelay has passed since the previous call.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultMinDelay is the spacing requested by the arXiv API terms of use.
const DefaultMinDelay = 3 * time.Second

// HTTPDoer is the subset of *http.Client used by a Fetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher serializes requests and spaces their start times by MinDelay.
type Fetcher struct {
	client   HTTPDoer
	minDelay time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithMinDelay sets the minimum gap between call start times.
// Default is DefaultMinDelay.
func WithMinDelay(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d < 0 {
			return ErrInvalidMinDelay
		}
		f.minDelay = d
		return nil
	}
}

// WithHTTPClient sets the client used to issue requests.
// Default is an *http.Client with a 30 second timeout.
func WithHTTPClient(client HTTPDoer) Option {
	return func(f *Fetcher) error {
		if client == nil {
			return ErrClientRequired
		}
		f.client = client
		return nil
	}
}

// WithClock replaces the time source and the wait primitive.
// Intended for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) error {
		if now != nil {
			f.now = now
		}
		if sleep != nil {
			f.sleep = sleep
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// New creates a Fetcher.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		minDelay: DefaultMinDelay,
		now:      time.Now,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")
	return f, nil
}

// MinDelay returns the configured spacing.
func (f *Fetcher) MinDelay() time.Duration {
	return f.minDelay
}

// Wait blocks until a call may start and records its start time.
// Concurrent callers are admitted one at a time.
func (f *Fetcher) Wait(ctx context.Context) error {
	_, err := f.admit(ctx)
	return err
}

// admit returns the recorded start time of the admitted call.
func (f *Fetcher) admit(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastCall.IsZero() {
		if wait := f.minDelay - f.now().Sub(f.lastCall); wait > 0 {
			f.logger.Debug("throttling request", "wait", wait)
			if err := f.sleep(ctx, wait); err != nil {
				return time.Time{}, err
			}
		}
	}
	f.lastCall = f.now()
	return f.lastCall, nil
}

// Do waits for its slot and then issues req.
func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	if err := f.Wait(req.Context()); err != nil {
		return nil, err
	}
	return f.client.Do(req)
}

// Get fetches url and returns the response body.
// Responses outside the 2xx range are reported as *HTTPError.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return f.read(req)
}

// PostJSON posts a JSON body to url and returns the response body.
func (f *Fetcher) PostJSON(ctx context.Context, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.read(req)
}

func (f *Fetcher) read(req *http.Request) ([]byte, error) {
	resp, err := f.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
