package query

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without a refetch.
const DefaultStaleTime = 10 * time.Second

// Fetcher loads the current value for a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Spec describes a query to register with a Client.
type Spec[T any] struct {
	Key     string
	Fetch   Fetcher[T]
	IsEmpty func(T) bool
	// Clone copies values across the cache boundary. nil shares values as is.
	Clone func(T) T
}

// Snapshot is a point-in-time view of a query.
type Snapshot[T any] struct {
	Data      T
	HasData   bool
	Err       error
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
	// ConsecutiveFailures counts failed fetches since the last success.
	ConsecutiveFailures int
}

// Status classifies the snapshot.
func (s Snapshot[T]) Status(isEmpty func(T) bool) Status {
	empty := false
	if s.HasData && isEmpty != nil {
		empty = isEmpty(s.Data)
	}
	return Classify(s.Fetching, s.HasData, empty, s.Err)
}

// IsOffline reports repeated failures.
func (s Snapshot[T]) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

type invalidator interface {
	Invalidate()
}

// Client owns the registered queries and the context their background
// fetches run under.
type Client struct {
	ctx       context.Context
	cancel    context.CancelFunc
	staleTime time.Duration
	now       func() time.Time
	log       logrus.FieldLogger

	mu      sync.Mutex
	queries map[string]invalidator
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets the staleness window. Non-positive values make every
// read stale.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates an empty query client.
func NewClient(opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ctx:       ctx,
		cancel:    cancel,
		staleTime: DefaultStaleTime,
		now:       time.Now,
		log:       logrus.StandardLogger(),
		queries:   make(map[string]invalidator),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StaleTime returns the configured staleness window.
func (c *Client) StaleTime() time.Duration {
	return c.staleTime
}

// Invalidate marks the query under key stale. It reports whether the key
// is registered.
func (c *Client) Invalidate(key string) bool {
	c.mu.Lock()
	q, ok := c.queries[key]
	c.mu.Unlock()
	if !ok {
		return false
	}
	q.Invalidate()
	return true
}

// Close cancels in-flight background fetches.
func (c *Client) Close() {
	c.cancel()
}

// Register adds a query under spec.Key, replacing any previous registration.
func Register[T any](c *Client, spec Spec[T]) *Query[T] {
	q := &Query[T]{
		client: c,
		key:    spec.Key,
		fetch:  spec.Fetch,
		empty:  spec.IsEmpty,
		clone:  spec.Clone,
		log:    c.log.WithField("query", spec.Key),
	}
	c.mu.Lock()
	c.queries[spec.Key] = q
	c.mu.Unlock()
	return q
}

// Query caches one value with stale-while-revalidate semantics.
//
// Invalidation bumps an epoch. A fetch records the epoch it started in, so
// data from a fetch that began before an invalidation is stored but stays
// stale.
type Query[T any] struct {
	client *Client
	key    string
	fetch  Fetcher[T]
	empty  func(T) bool
	clone  func(T) T
	log    logrus.FieldLogger
	group  singleflight.Group

	mu        sync.Mutex
	data      T
	hasData   bool
	err       error
	updatedAt time.Time
	failures  int
	epoch     uint64
	dataEpoch uint64
	fetching  int
	active    bool

	// failedAt and failedEpoch record the last failed attempt.
	failedAt    time.Time
	failedEpoch uint64
}

// Key returns the cache key.
func (q *Query[T]) Key() string {
	return q.key
}

// Read returns the cached value and starts a background refetch when the
// value is missing or stale. It never blocks on the network. After a failed
// fetch the error is reported and Read waits out the staleness window, or
// an invalidation, before trying again.
func (q *Query[T]) Read(ctx context.Context) Snapshot[T] {
	q.mu.Lock()
	q.active = true
	started := q.dueLocked() && ctx.Err() == nil
	epoch := q.epoch
	q.mu.Unlock()

	if started {
		q.start(epoch)
	}
	snap := q.Snapshot()
	if started {
		snap.Fetching = true
	}
	return snap
}

// Fetch loads a fresh value for the current epoch, joining a fetch already
// running for it. The fetch itself runs under the client context; ctx only
// bounds the wait.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	q.mu.Lock()
	q.active = true
	epoch := q.epoch
	q.mu.Unlock()

	select {
	case res := <-q.start(epoch):
		var zero T
		if res.Err != nil {
			return zero, res.Err
		}
		return q.copy(res.Val.(T)), nil
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", q.key, ctx.Err())
	}
}

// Refresh is Fetch without the value.
func (q *Query[T]) Refresh(ctx context.Context) error {
	_, err := q.Fetch(ctx)
	return err
}

// Invalidate marks the cached value stale regardless of age. Queries that
// have been read refetch in the background right away.
func (q *Query[T]) Invalidate() {
	q.mu.Lock()
	q.epoch++
	epoch := q.epoch
	active := q.active
	q.mu.Unlock()

	q.log.WithField("epoch", epoch).Debug("query invalidated")
	if active {
		q.start(epoch)
	}
}

// Snapshot returns the current state without triggering a fetch.
func (q *Query[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot[T]{
		Data:                q.copy(q.data),
		HasData:             q.hasData,
		Err:                 q.err,
		Fetching:            q.fetching > 0,
		Stale:               q.staleLocked(),
		UpdatedAt:           q.updatedAt,
		ConsecutiveFailures: q.failures,
	}
}

// Status classifies the current snapshot.
func (q *Query[T]) Status() Status {
	return q.Snapshot().Status(q.empty)
}

// IsEmpty applies the registered emptiness check.
func (q *Query[T]) IsEmpty(v T) bool {
	return q.empty != nil && q.empty(v)
}

func (q *Query[T]) staleLocked() bool {
	if !q.hasData || q.dataEpoch < q.epoch {
		return true
	}
	return q.client.now().Sub(q.updatedAt) >= q.client.staleTime
}

// dueLocked reports whether Read should start a fetch.
func (q *Query[T]) dueLocked() bool {
	if !q.staleLocked() {
		return false
	}
	if q.err != nil && q.failedEpoch == q.epoch &&
		q.client.now().Sub(q.failedAt) < q.client.staleTime {
		return false
	}
	return true
}

func (q *Query[T]) start(epoch uint64) <-chan singleflight.Result {
	key := q.key + "@" + strconv.FormatUint(epoch, 10)
	return q.group.DoChan(key, func() (any, error) {
		q.mu.Lock()
		q.fetching++
		q.mu.Unlock()

		data, err := q.fetch(q.client.ctx)
		q.settle(epoch, data, err)
		if err != nil {
			return nil, err
		}
		return data, nil
	})
}

func (q *Query[T]) settle(epoch uint64, data T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fetching--

	// A newer fetch already landed.
	if q.hasData && epoch < q.dataEpoch {
		return
	}
	if err != nil {
		q.err = err
		q.failures++
		q.failedAt = q.client.now()
		q.failedEpoch = epoch
		q.log.WithError(err).WithField("failures", q.failures).Debug("query fetch failed")
		return
	}
	q.data = q.copy(data)
	q.hasData = true
	q.err = nil
	q.failures = 0
	q.updatedAt = q.client.now()
	q.dataEpoch = epoch
}

func (q *Query[T]) copy(v T) T {
	if q.clone == nil {
		return v
	}
	return q.clone(v)
}
