package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/poiesic/scholarly/ai/mock"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource returns canned batches per category.
type fakeSource struct {
	mu      sync.Mutex
	batches map[core.Category][]*core.CandidateItem
	errs    map[core.Category]error
	calls   []core.Category

	// gate, when set, blocks every call until it is closed.
	gate    chan struct{}
	entered chan core.Category
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(map[core.Category][]*core.CandidateItem),
		errs:    make(map[core.Category]error),
	}
}

func (f *fakeSource) Tag() core.SourceTag { return core.SourceArxiv }

func (f *fakeSource) ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error) {
	f.mu.Lock()
	f.calls = append(f.calls, category)
	gate, entered := f.gate, f.entered
	items, err := f.batches[category], f.errs[category]
	f.mu.Unlock()

	if entered != nil {
		entered <- category
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, source.ErrSourceEmpty
	}
	return items, nil
}

func (f *fakeSource) setGate(gate chan struct{}, entered chan core.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate, f.entered = gate, entered
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeStore is an in-memory DedupStore that counts calls.
type fakeStore struct {
	mu          sync.Mutex
	records     map[string]*core.IngestionRecord
	order       []string
	existsCalls int
	putCalls    int
	putErrs     map[string]error
	existsErrs  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[string]*core.IngestionRecord),
		putErrs:    make(map[string]error),
		existsErrs: make(map[string]error),
	}
}

func (s *fakeStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++
	if err := s.existsErrs[id]; err != nil {
		return false, err
	}
	_, ok := s.records[id]
	return ok, nil
}

func (s *fakeStore) Put(ctx context.Context, record *core.IngestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if err := s.putErrs[record.ID]; err != nil {
		return err
	}
	if _, ok := s.records[record.ID]; ok {
		return nil
	}
	s.records[record.ID] = record
	s.order = append(s.order, record.ID)
	return nil
}

func (s *fakeStore) counts() (exists, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsCalls, s.putCalls
}

func (s *fakeStore) resetCounts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls, s.putCalls = 0, 0
}

func (s *fakeStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func (s *fakeStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func item(id string, category core.Category) *core.CandidateItem {
	return &core.CandidateItem{
		ID:       id,
		Title:    "Paper " + id,
		Body:     "Abstract of " + id,
		Source:   core.SourceArxiv,
		Category: category,
	}
}

func testConfig(categories ...core.Category) SchedulerConfig {
	return SchedulerConfig{
		RoomID:                "room",
		Categories:            categories,
		MaxResultsPerCategory: 2,
		CheckInterval:         time.Second,
	}
}

// manualTimer hands the scheduler a channel the test fires by hand.
type manualTimer struct {
	calls chan time.Duration
	tick  chan time.Time
}

func newManualTimer() *manualTimer {
	return &manualTimer{
		calls: make(chan time.Duration, 16),
		tick:  make(chan time.Time),
	}
}

func (m *manualTimer) after(d time.Duration) <-chan time.Time {
	m.calls <- d
	return m.tick
}

func newTestScheduler(t *testing.T, cfg SchedulerConfig, src *fakeSource, store *fakeStore, opts ...Option) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg, src, store, opts...)
	require.NoError(t, err)
	return s
}

func TestScheduler_IdempotentIngestion(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("a1", "cs.AI"), item("a2", "cs.AI")}
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store)
	ctx := context.Background()

	report := s.RunCycle(ctx)
	assert.True(t, store.has("a1"))
	assert.True(t, store.has("a2"))
	exists, puts := store.counts()
	assert.Equal(t, 2, exists)
	assert.Equal(t, 2, puts)
	assert.Equal(t, 2, report.Stored())
	assert.Empty(t, report.Failures)

	store.resetCounts()
	report = s.RunCycle(ctx)
	exists, puts = store.counts()
	assert.Equal(t, 2, exists, "every candidate is checked again")
	assert.Equal(t, 0, puts, "known candidates are never written")
	assert.Equal(t, 0, report.Stored())
	assert.Equal(t, 2, report.Skipped())
	assert.Equal(t, []string{"a1", "a2"}, store.ids())
}

func TestScheduler_FailureIsolation(t *testing.T) {
	src := newFakeSource()
	src.errs["cs.LG"] = fmt.Errorf("%w: connection refused", source.ErrSourceUnavailable)
	src.batches["cs.AI"] = []*core.CandidateItem{item("b1", "cs.AI")}
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.LG", "cs.AI"), src, store)

	report := s.RunCycle(context.Background())

	assert.True(t, store.has("b1"))
	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.Equal(t, core.Category("cs.LG"), failure.Category)
	assert.Equal(t, FailureSourceUnavailable, failure.Kind)
	assert.Empty(t, failure.ItemID)
	assert.ErrorIs(t, failure.Err, source.ErrSourceUnavailable)

	want := []CategoryResult{
		{Category: "cs.LG", Failed: true},
		{Category: "cs.AI", Fetched: 1, Stored: 1},
	}
	if diff := cmp.Diff(want, report.Categories); diff != "" {
		t.Errorf("category results mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, report.AllFailed())
}

func TestScheduler_PutFailureDoesNotStopBatch(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("p1", "cs.AI"), item("p2", "cs.AI"), item("p3", "cs.AI")}
	store := newFakeStore()
	store.putErrs["p1"] = errors.New("disk full")
	store.existsErrs["p2"] = errors.New("read timeout")
	cfg := testConfig("cs.AI")
	cfg.MaxResultsPerCategory = 3
	s := newTestScheduler(t, cfg, src, store)

	report := s.RunCycle(context.Background())

	assert.False(t, store.has("p1"))
	assert.False(t, store.has("p2"))
	assert.True(t, store.has("p3"))
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "p1", report.Failures[0].ItemID)
	assert.Equal(t, FailureStoreWrite, report.Failures[0].Kind)
	assert.Equal(t, "p2", report.Failures[1].ItemID)
	assert.Equal(t, FailureStoreRead, report.Failures[1].Kind)
	assert.Equal(t, 1, report.Stored())
}

func TestScheduler_EmptySourceIsNotAFailure(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store)

	report := s.RunCycle(context.Background())

	assert.Empty(t, report.Failures)
	require.Len(t, report.Categories, 1)
	assert.True(t, report.Categories[0].Empty)
	_, puts := store.counts()
	assert.Equal(t, 0, puts)
}

type panickingSource struct{}

func (panickingSource) Tag() core.SourceTag { return core.SourceWebSearch }

func (panickingSource) ListCandidates(ctx context.Context, category core.Category, max int) ([]*core.CandidateItem, error) {
	if category == "boom" {
		panic("nil map write")
	}
	return []*core.CandidateItem{{ID: "ok-" + string(category), Title: "t", Source: core.SourceWebSearch, Category: category}}, nil
}

func TestScheduler_SourcePanicIsRecovered(t *testing.T) {
	store := newFakeStore()
	s, err := NewScheduler(testConfig("boom", "ai"), panickingSource{}, store)
	require.NoError(t, err)

	report := s.RunCycle(context.Background())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, core.Category("boom"), report.Failures[0].Category)
	assert.ErrorIs(t, report.Failures[0].Err, source.ErrSourceUnavailable)
	assert.True(t, store.has("ok-ai"))
}

// panickingStore panics on the ids it is told to.
type panickingStore struct {
	*fakeStore
	existsPanics map[string]bool
	putPanics    map[string]bool
}

func (s *panickingStore) Exists(ctx context.Context, id string) (bool, error) {
	if s.existsPanics[id] {
		panic("index corrupted")
	}
	return s.fakeStore.Exists(ctx, id)
}

func (s *panickingStore) Put(ctx context.Context, record *core.IngestionRecord) error {
	if s.putPanics[record.ID] {
		panic("write to closed table")
	}
	return s.fakeStore.Put(ctx, record)
}

func TestScheduler_StorePanicIsRecovered(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("r1", "cs.AI"), item("w1", "cs.AI"), item("ok", "cs.AI")}
	store := &panickingStore{
		fakeStore:    newFakeStore(),
		existsPanics: map[string]bool{"r1": true},
		putPanics:    map[string]bool{"w1": true},
	}
	cfg := testConfig("cs.AI")
	cfg.MaxResultsPerCategory = 3
	s, err := NewScheduler(cfg, src, store)
	require.NoError(t, err)

	var report *CycleReport
	require.NotPanics(t, func() { report = s.RunCycle(context.Background()) })

	require.Len(t, report.Failures, 2)
	assert.Equal(t, "r1", report.Failures[0].ItemID)
	assert.Equal(t, FailureStoreRead, report.Failures[0].Kind)
	assert.ErrorIs(t, report.Failures[0].Err, ErrItemPanicked)
	assert.Equal(t, "w1", report.Failures[1].ItemID)
	assert.Equal(t, FailureStoreWrite, report.Failures[1].Kind)
	assert.ErrorIs(t, report.Failures[1].Err, ErrItemPanicked)
	assert.True(t, store.has("ok"))
	assert.Equal(t, 1, report.Stored())
}

func TestScheduler_EmbedderPanicIsRecovered(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("e1", "cs.AI")}
	store := newFakeStore()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		panic("tokenizer exploded")
	}
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithEmbedder(embedder))

	report := s.RunCycle(context.Background())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, FailureStoreWrite, report.Failures[0].Kind)
	assert.ErrorIs(t, report.Failures[0].Err, ErrItemPanicked)
	assert.False(t, store.has("e1"))
}

func TestScheduler_InvalidCandidateIsRecorded(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{{ID: " ", Source: core.SourceArxiv}, item("good", "cs.AI")}
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store)

	report := s.RunCycle(context.Background())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, FailureInvalidItem, report.Failures[0].Kind)
	assert.ErrorIs(t, report.Failures[0].Err, core.ErrEmptyID)
	assert.True(t, store.has("good"))
}

func TestScheduler_BatchBoundedByMaxResults(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{
		item("m1", "cs.AI"), item("m2", "cs.AI"), item("m3", "cs.AI"), item("m4", "cs.AI"),
	}
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store)

	report := s.RunCycle(context.Background())

	assert.Equal(t, []string{"m1", "m2"}, store.ids())
	assert.Equal(t, 2, report.Categories[0].Fetched)
}

// recordingMonitor captures hook calls in order.
type recordingMonitor struct {
	noopMonitor
	mu     sync.Mutex
	events []string
}

func (m *recordingMonitor) add(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *recordingMonitor) CycleStarted(roomID string)              { m.add("start " + roomID) }
func (m *recordingMonitor) ItemSkipped(item *core.CandidateItem)    { m.add("skip " + item.ID) }
func (m *recordingMonitor) ItemStored(record *core.IngestionRecord) { m.add("store " + record.ID) }
func (m *recordingMonitor) Failure(f CategoryFailure)               { m.add("fail " + string(f.Category)) }
func (m *recordingMonitor) CycleFinished(report *CycleReport)       { m.add("finish") }
func (m *recordingMonitor) CategoryListed(c core.Category, n int)   { m.add(fmt.Sprintf("list %s %d", c, n)) }

func TestScheduler_ProcessingOrder(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.LG"] = []*core.CandidateItem{item("z9", "cs.LG"), item("a0", "cs.LG")}
	src.batches["cs.AI"] = []*core.CandidateItem{item("k5", "cs.AI")}
	src.errs["cs.CL"] = source.ErrSourceUnavailable
	store := newFakeStore()
	store.records["a0"] = &core.IngestionRecord{ID: "a0"}
	monitor := &recordingMonitor{}
	s := newTestScheduler(t, testConfig("cs.LG", "cs.CL", "cs.AI"), src, store, WithMonitor(monitor))

	s.RunCycle(context.Background())

	want := []string{
		"start room",
		"list cs.LG 2",
		"store z9",
		"skip a0",
		"fail cs.CL",
		"list cs.AI 1",
		"store k5",
		"finish",
	}
	if diff := cmp.Diff(want, monitor.events); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduler_RecordContents(t *testing.T) {
	published := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src := newFakeSource()
	paper := item("2301.00001", "cs.AI")
	paper.Authors = []string{"Ada Lovelace"}
	paper.PublishedAt = published
	src.batches["cs.AI"] = []*core.CandidateItem{paper}
	store := newFakeStore()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store,
		WithClock(func() time.Time { return now }, nil))

	s.RunCycle(context.Background())

	record := store.records["2301.00001"]
	require.NotNil(t, record)
	assert.Equal(t, "room", record.RoomID)
	assert.Equal(t, published, record.CreatedAt)
	assert.Equal(t, "Title: Paper 2301.00001\nAuthors: Ada Lovelace\nSummary: Abstract of 2301.00001", record.Content)
	assert.Nil(t, record.Vector)
}

func TestScheduler_Embedding(t *testing.T) {
	t.Run("vector attached", func(t *testing.T) {
		src := newFakeSource()
		src.batches["cs.AI"] = []*core.CandidateItem{item("e1", "cs.AI")}
		store := newFakeStore()
		embedder := mock.NewMockEmbedder()
		s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithEmbedder(embedder))

		s.RunCycle(context.Background())

		require.True(t, store.has("e1"))
		assert.Len(t, store.records["e1"].Vector, 64)
		assert.Equal(t, 1, embedder.CallCount())
	})

	t.Run("failure stores without vector", func(t *testing.T) {
		src := newFakeSource()
		src.batches["cs.AI"] = []*core.CandidateItem{item("e2", "cs.AI")}
		store := newFakeStore()
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("model offline")
		}
		s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithEmbedder(embedder))

		report := s.RunCycle(context.Background())

		require.True(t, store.has("e2"))
		assert.Nil(t, store.records["e2"].Vector)
		assert.Empty(t, report.Failures)
	})

	t.Run("known items are not embedded", func(t *testing.T) {
		src := newFakeSource()
		src.batches["cs.AI"] = []*core.CandidateItem{item("e3", "cs.AI")}
		store := newFakeStore()
		store.records["e3"] = &core.IngestionRecord{ID: "e3"}
		embedder := mock.NewMockEmbedder()
		s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithEmbedder(embedder))

		s.RunCycle(context.Background())

		assert.Equal(t, 0, embedder.CallCount())
	})
}

func TestScheduler_AllFailed(t *testing.T) {
	src := newFakeSource()
	src.errs["cs.AI"] = source.ErrSourceUnavailable
	src.errs["cs.LG"] = source.ErrSourceUnavailable
	s := newTestScheduler(t, testConfig("cs.AI", "cs.LG"), src, newFakeStore())

	report := s.RunCycle(context.Background())

	assert.True(t, report.AllFailed())
	assert.Same(t, report, s.LastReport())
}

func TestScheduler_StartStopContract(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("s1", "cs.AI")}
	store := newFakeStore()
	timer := newManualTimer()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithClock(nil, timer.after))
	ctx := context.Background()

	assert.ErrorIs(t, s.Stop(), ErrNotStarted)
	assert.Nil(t, s.LastReport())

	require.NoError(t, s.Start(ctx))
	assert.True(t, store.has("s1"), "first cycle runs before Start returns")
	assert.NotNil(t, s.LastReport())
	assert.True(t, s.Running())

	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)

	// A stopped scheduler can be started again.
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop())
	assert.Equal(t, 2, src.callCount())
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("i1", "cs.AI")}
	store := newFakeStore()
	timer := newManualTimer()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithClock(nil, timer.after))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, time.Second, <-timer.calls)

	timer.tick <- time.Now()
	assert.Equal(t, time.Second, <-timer.calls, "next cycle is armed after the previous one returns")
	assert.Equal(t, 2, src.callCount())

	require.NoError(t, s.Stop())
}

func TestScheduler_NoOverlappingCycles(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("o1", "cs.AI")}
	store := newFakeStore()
	timer := newManualTimer()
	cfg := testConfig("cs.AI")
	cfg.CheckInterval = 10 * time.Millisecond
	s := newTestScheduler(t, cfg, src, store, WithClock(nil, timer.after))

	require.NoError(t, s.Start(context.Background()))
	<-timer.calls

	// The next cycle blocks inside the source, overrunning the interval.
	gate := make(chan struct{})
	entered := make(chan core.Category, 1)
	src.setGate(gate, entered)
	timer.tick <- time.Now()
	<-entered

	select {
	case <-timer.calls:
		t.Fatal("next cycle was armed while the current one was still running")
	case <-time.After(50 * time.Millisecond):
	}

	// A direct RunCycle also waits for the in-flight cycle.
	direct := make(chan struct{})
	go func() {
		defer close(direct)
		s.RunCycle(context.Background())
	}()
	select {
	case <-entered:
		t.Fatal("direct cycle overlapped the scheduled one")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	<-entered // the direct cycle runs once the first returns
	<-direct
	<-timer.calls

	src.setGate(nil, nil)
	require.NoError(t, s.Stop())
}

func TestScheduler_StopWaitsForInFlightCycle(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("w1", "cs.AI")}
	store := newFakeStore()
	timer := newManualTimer()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithClock(nil, timer.after))

	require.NoError(t, s.Start(context.Background()))
	<-timer.calls

	src.batches["cs.AI"] = []*core.CandidateItem{item("w2", "cs.AI")}
	gate := make(chan struct{})
	entered := make(chan core.Category, 1)
	src.setGate(gate, entered)
	timer.tick <- time.Now()
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight cycle finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-stopped)
	assert.True(t, store.has("w2"), "in-flight cycle completed its writes")

	select {
	case <-timer.calls:
		t.Fatal("timer armed after Stop")
	default:
	}
}

func TestScheduler_ContextCancelStopsScheduling(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	timer := newManualTimer()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithClock(nil, timer.after))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	<-timer.calls
	cancel()

	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)
	assert.Equal(t, 1, src.callCount())

	// The canceled run left nothing behind; a fresh Start works.
	require.NoError(t, s.Start(context.Background()))
	<-timer.calls
	assert.True(t, s.Running())
	require.NoError(t, s.Stop())
	assert.Equal(t, 2, src.callCount())
}

func TestScheduler_StartWithCanceledContext(t *testing.T) {
	src := newFakeSource()
	src.batches["cs.AI"] = []*core.CandidateItem{item("c1", "cs.AI")}
	store := newFakeStore()
	timer := newManualTimer()
	s := newTestScheduler(t, testConfig("cs.AI"), src, store, WithClock(nil, timer.after))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, store.has("c1"), "first cycle runs on a detached context")
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
	<-timer.calls

	require.NoError(t, s.Start(context.Background()))
	<-timer.calls
	require.NoError(t, s.Stop())
}

func TestNewScheduler_Validation(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()

	_, err := NewScheduler(testConfig("cs.AI"), nil, store)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewScheduler(testConfig("cs.AI"), src, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewScheduler(testConfig("cs.AI"), src, store, WithMinInterval(3*time.Second))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewScheduler(testConfig("cs.AI"), src, store, WithMinInterval(time.Second))
	assert.NoError(t, err)
}

func TestSchedulerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SchedulerConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(c *SchedulerConfig) {}},
		{name: "empty room", mutate: func(c *SchedulerConfig) { c.RoomID = "" }, wantErr: core.ErrEmptyRoomID},
		{name: "no categories", mutate: func(c *SchedulerConfig) { c.Categories = nil }, wantErr: ErrNoCategories},
		{name: "blank category", mutate: func(c *SchedulerConfig) { c.Categories = []core.Category{" "} }, wantErr: ErrInvalidConfig},
		{name: "duplicate category", mutate: func(c *SchedulerConfig) { c.Categories = []core.Category{"a", "a"} }, wantErr: ErrDuplicateCategory},
		{name: "zero max", mutate: func(c *SchedulerConfig) { c.MaxResultsPerCategory = 0 }, wantErr: ErrInvalidMaxResults},
		{name: "zero interval", mutate: func(c *SchedulerConfig) { c.CheckInterval = 0 }, wantErr: ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("cs.AI", "cs.LG")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestScheduler_ConfigIsCopied(t *testing.T) {
	categories := []core.Category{"cs.AI"}
	cfg := testConfig(categories...)
	cfg.Categories = categories
	s := newTestScheduler(t, cfg, newFakeSource(), newFakeStore())

	categories[0] = "mutated"
	assert.Equal(t, core.Category("cs.AI"), s.Config().Categories[0])
}
