package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/bookdesk/internal/bookapi"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeLister struct {
	mu    sync.Mutex
	books []bookapi.Book
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeLister) ListBooks(ctx context.Context) ([]bookapi.Book, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]bookapi.Book(nil), f.books...), nil
}

func (f *fakeLister) set(books []bookapi.Book, err error) {
	f.mu.Lock()
	f.books = books
	f.err = err
	f.mu.Unlock()
}

func newBooks(t *testing.T, api BookLister) (*Client, *Query[[]bookapi.Book], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewClient(WithClock(clock.Now))
	t.Cleanup(c.Close)
	return c, Books(c, api), clock
}

func waitIdle(t *testing.T, q *Query[[]bookapi.Book]) Snapshot[[]bookapi.Book] {
	t.Helper()
	var snap Snapshot[[]bookapi.Book]
	require.Eventually(t, func() bool {
		snap = q.Snapshot()
		return !snap.Fetching
	}, time.Second, 5*time.Millisecond)
	return snap
}

// waitCalls waits until api has been called n times and no fetch is running.
func waitCalls(t *testing.T, q *Query[[]bookapi.Book], api *fakeLister, n int32) Snapshot[[]bookapi.Book] {
	t.Helper()
	var snap Snapshot[[]bookapi.Book]
	require.Eventually(t, func() bool {
		snap = q.Snapshot()
		return api.calls.Load() == n && !snap.Fetching
	}, time.Second, 5*time.Millisecond)
	return snap
}

func TestClassify_Precedence(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		fetching bool
		hasData  bool
		empty    bool
		err      error
		want     Status
	}{
		{"initial", false, false, false, nil, LoadingNoData},
		{"first fetch", true, false, false, nil, LoadingNoData},
		{"refetch with data", true, true, false, nil, LoadingStale},
		{"refetch after error", true, true, false, boom, LoadingStale},
		{"error without data", false, false, false, boom, Error},
		{"error with data", false, true, false, boom, Error},
		{"empty", false, true, true, nil, LoadedEmpty},
		{"rows", false, true, false, nil, LoadedNonEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.fetching, tt.hasData, tt.empty, tt.err))
		})
	}
}

func TestQuery_FreshValueServedWithoutNetwork(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1", Title: "Dune"}}}
	_, q, clock := newBooks(t, api)

	got, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int32(1), api.calls.Load())

	clock.Advance(5 * time.Second)
	snap := q.Read(context.Background())
	require.False(t, snap.Fetching)
	require.False(t, snap.Stale)
	require.Equal(t, LoadedNonEmpty, snap.Status(q.IsEmpty))
	require.Equal(t, int32(1), api.calls.Load())
}

func TestQuery_StaleWhileRevalidate(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1", Title: "Dune"}}}
	_, q, clock := newBooks(t, api)

	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	api.set([]bookapi.Book{{ID: "2", Title: "Emma"}, {ID: "1", Title: "Dune"}}, nil)
	api.gate = make(chan struct{})
	clock.Advance(DefaultStaleTime)

	snap := q.Read(context.Background())
	require.True(t, snap.Stale)
	require.Equal(t, LoadingStale, snap.Status(q.IsEmpty))
	require.Len(t, snap.Data, 1, "stale value should be served during refetch")

	close(api.gate)
	snap = waitCalls(t, q, api, 2)
	require.Len(t, snap.Data, 2)
	require.Equal(t, LoadedNonEmpty, snap.Status(q.IsEmpty))
}

func TestQuery_NoDataIsLoading(t *testing.T) {
	api := &fakeLister{gate: make(chan struct{})}
	_, q, _ := newBooks(t, api)

	require.Equal(t, LoadingNoData, q.Status())
	snap := q.Read(context.Background())
	require.Equal(t, LoadingNoData, snap.Status(q.IsEmpty))

	close(api.gate)
	snap = waitCalls(t, q, api, 1)
	require.Equal(t, LoadedEmpty, snap.Status(q.IsEmpty))
}

func TestQuery_InvalidateForcesRefetchWithinWindow(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1", Title: "Dune"}}}
	c, q, _ := newBooks(t, api)

	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	api.set([]bookapi.Book{{ID: "2", Title: "Emma"}, {ID: "1", Title: "Dune"}}, nil)
	require.True(t, c.Invalidate(BooksKey))
	require.False(t, c.Invalidate("authors"))

	got, err := q.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	snap := waitIdle(t, q)
	require.False(t, snap.Stale)
}

func TestQuery_FetchBeforeInvalidateStaysStale(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1"}}, gate: make(chan struct{})}
	_, q, _ := newBooks(t, api)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = q.Fetch(context.Background())
	}()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	q.mu.Lock()
	q.epoch++
	q.mu.Unlock()

	api.gate <- struct{}{}
	<-done
	snap := q.Snapshot()
	require.True(t, snap.HasData)
	require.True(t, snap.Stale, "data fetched before invalidation must stay stale")
}

func TestQuery_ErrorKeepsDataAndCountsFailures(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1"}}}
	_, q, clock := newBooks(t, api)

	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	boom := errors.New("unreachable")
	api.set(nil, boom)
	clock.Advance(time.Minute)
	for i := 0; i < 2; i++ {
		_, err = q.Fetch(context.Background())
		require.ErrorIs(t, err, boom)
	}

	snap := q.Snapshot()
	require.Equal(t, Error, snap.Status(q.IsEmpty))
	require.Len(t, snap.Data, 1)
	require.Equal(t, 2, snap.ConsecutiveFailures)
	require.True(t, snap.IsOffline())

	api.set([]bookapi.Book{}, nil)
	_, err = q.Fetch(context.Background())
	require.NoError(t, err)
	snap = q.Snapshot()
	require.Equal(t, LoadedEmpty, snap.Status(q.IsEmpty))
	require.Zero(t, snap.ConsecutiveFailures)
}

func TestQuery_ConcurrentFetchesShareOneCall(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1"}}, gate: make(chan struct{})}
	_, q, _ := newBooks(t, api)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := q.Fetch(context.Background()); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(api.gate)
	wg.Wait()
	require.Equal(t, int32(1), api.calls.Load())
}

func TestQuery_FetchHonoursCallerContext(t *testing.T) {
	api := &fakeLister{gate: make(chan struct{})}
	_, q, _ := newBooks(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Fetch(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(api.gate)
}

func TestQuery_SnapshotIsACopy(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1", Title: "Dune"}}}
	_, q, _ := newBooks(t, api)

	got, err := q.Fetch(context.Background())
	require.NoError(t, err)
	got[0].Title = "mutated"

	require.Equal(t, "Dune", q.Snapshot().Data[0].Title)
}

func TestClient_CloseCancelsBackgroundFetch(t *testing.T) {
	api := &fakeLister{gate: make(chan struct{})}
	c, q, _ := newBooks(t, api)

	q.Read(context.Background())
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)
	c.Close()

	snap := waitIdle(t, q)
	require.ErrorIs(t, snap.Err, context.Canceled)
}

func TestQuery_ReadSurfacesFetchError(t *testing.T) {
	refused := errors.New("connection refused")
	api := &fakeLister{err: refused}
	c, q, clock := newBooks(t, api)

	snap := q.Read(context.Background())
	require.Equal(t, LoadingNoData, snap.Status(q.IsEmpty))
	waitCalls(t, q, api, 1)

	for i := 0; i < 5; i++ {
		snap = q.Read(context.Background())
		require.False(t, snap.Fetching)
		require.ErrorIs(t, snap.Err, refused)
		require.Equal(t, Error, snap.Status(q.IsEmpty))
	}
	require.Equal(t, int32(1), api.calls.Load(), "a failed fetch must not be retried on every read")

	clock.Advance(DefaultStaleTime)
	snap = q.Read(context.Background())
	require.True(t, snap.Fetching)
	waitCalls(t, q, api, 2)

	require.True(t, c.Invalidate(BooksKey))
	waitCalls(t, q, api, 3)
	require.Equal(t, Error, q.Read(context.Background()).Status(q.IsEmpty))
	require.Equal(t, int32(3), api.calls.Load())
}

func TestQuery_ReadErrorWithStaleData(t *testing.T) {
	api := &fakeLister{books: []bookapi.Book{{ID: "1", Title: "Dune"}}}
	_, q, clock := newBooks(t, api)

	_, err := q.Fetch(context.Background())
	require.NoError(t, err)

	api.set(nil, errors.New("connection refused"))
	clock.Advance(DefaultStaleTime)
	q.Read(context.Background())
	waitCalls(t, q, api, 2)

	snap := q.Read(context.Background())
	require.Equal(t, Error, snap.Status(q.IsEmpty))
	require.Len(t, snap.Data, 1)
	require.Equal(t, int32(2), api.calls.Load())
}
