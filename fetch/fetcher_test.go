package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when slept on or explicitly moved.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

// recordingClient notes the clock reading at each request.
type recordingClient struct {
	clock  *fakeClock
	mu     sync.Mutex
	starts []time.Time
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.starts = append(c.starts, c.clock.Now())
	c.mu.Unlock()
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil
}

func newTestFetcher(t *testing.T, minDelay time.Duration) (*Fetcher, *fakeClock, *recordingClient) {
	t.Helper()
	clock := newFakeClock()
	client := &recordingClient{clock: clock}
	f, err := New(WithMinDelay(minDelay), WithHTTPClient(client), WithClock(clock.Now, clock.Sleep))
	require.NoError(t, err)
	return f, clock, client
}

func TestFetcher_SpacesConsecutiveCalls(t *testing.T) {
	minDelay := 3 * time.Second
	f, clock, client := newTestFetcher(t, minDelay)
	ctx := context.Background()

	// Mixed pacing: back-to-back, partial elapsed, and already past the gap.
	advances := []time.Duration{0, 0, time.Second, 5 * time.Second, 2999 * time.Millisecond, 0}
	for _, d := range advances {
		clock.Advance(d)
		_, err := f.Get(ctx, "http://example.invalid/")
		require.NoError(t, err)
	}

	require.Len(t, client.starts, len(advances))
	for i := 1; i < len(client.starts); i++ {
		gap := client.starts[i].Sub(client.starts[i-1])
		assert.GreaterOrEqual(t, gap, minDelay, "gap between call %d and %d", i-1, i)
	}
}

func TestFetcher_FirstCallIsImmediate(t *testing.T) {
	f, clock, client := newTestFetcher(t, time.Minute)
	start := clock.Now()

	_, err := f.Get(context.Background(), "http://example.invalid/")
	require.NoError(t, err)

	require.Len(t, client.starts, 1)
	assert.Equal(t, start, client.starts[0])
}

func TestFetcher_WaitsExactlyRemainingDelay(t *testing.T) {
	f, clock, client := newTestFetcher(t, 3*time.Second)
	ctx := context.Background()

	require.NoError(t, f.Wait(ctx))
	clock.Advance(time.Second)
	_, err := f.Get(ctx, "http://example.invalid/")
	require.NoError(t, err)

	require.Len(t, client.starts, 1)
	first := clock.Now().Add(-3 * time.Second)
	assert.Equal(t, 3*time.Second, client.starts[0].Sub(first))
}

func TestFetcher_ConcurrentCallersAreSerialized(t *testing.T) {
	minDelay := 2 * time.Second
	f, _, _ := newTestFetcher(t, minDelay)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		starts []time.Time
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start, err := f.admit(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			starts = append(starts, start)
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })
	require.Len(t, starts, 10)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), minDelay)
	}
}

func TestFetcher_WaitHonorsContext(t *testing.T) {
	f, err := New(WithMinDelay(time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_RealClockSpacing(t *testing.T) {
	minDelay := 30 * time.Millisecond
	f, err := New(WithMinDelay(minDelay))
	require.NoError(t, err)

	var starts []time.Time
	for i := 0; i < 4; i++ {
		start, err := f.admit(context.Background())
		require.NoError(t, err)
		starts = append(starts, start)
	}
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), minDelay)
	}
}

func TestFetcher_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/echo":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			io.Copy(w, r.Body)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f, err := New(WithMinDelay(0))
	require.NoError(t, err)
	ctx := context.Background()

	body, err := f.Get(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	body, err = f.PostJSON(ctx, srv.URL+"/echo", strings.NewReader(`{"q":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":1}`, string(body))

	_, err = f.Get(ctx, srv.URL+"/down")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithMinDelay(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidMinDelay)

	_, err = New(WithHTTPClient(nil))
	assert.ErrorIs(t, err, ErrClientRequired)

	f, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultMinDelay, f.MinDelay())
}
