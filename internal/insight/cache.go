// Package insight caches advisory snapshots (branch health, page insights)
// per scope. Snapshots are refreshed when they turn stale while someone is
// subscribed, and once more after domain data changes.
package insight

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/eventbus"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultSettleDelay = 1500 * time.Millisecond
)

type Status string

const (
	StatusEmpty    Status = "EMPTY"
	StatusFetching Status = "FETCHING"
	StatusFresh    Status = "FRESH"
	StatusStale    Status = "STALE"
)

// Fetcher loads the snapshot for key. force asks the backend to bypass its
// own caches.
type Fetcher[K comparable, T any] func(ctx context.Context, key K, force bool) (T, error)

// Signal is the data-changed bus the cache listens to.
type Signal interface {
	Subscribe(h eventbus.Handler) func()
}

type Options struct {
	TTL         time.Duration
	SettleDelay time.Duration
}

type entry[T any] struct {
	value       T
	has         bool
	fetchedAt   time.Time
	forcedStale bool
	fetching    bool
	subs        map[uint64]func(T)
	ttlTimer    *time.Timer
	settleTimer *time.Timer
	// Generations invalidate callbacks of timers that fired after being
	// stopped or replaced.
	ttlGen    uint64
	settleGen uint64
}

type Cache[K comparable, T any] struct {
	name   string
	fetch  Fetcher[K, T]
	keyOf  func(K) string
	ttl    time.Duration
	settle time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu          sync.Mutex
	entries     map[K]*entry[T]
	nextSub     uint64
	closed      bool
	unsubscribe func()
	fetches     sync.WaitGroup
}

// New builds a cache. keyOf must map distinct keys to distinct strings; it
// names the in-flight fetch shared by concurrent callers. A nil signal
// disables data-changed refreshes.
func New[K comparable, T any](ctx context.Context, name string, fetch Fetcher[K, T], keyOf func(K) string, signal Signal, opts Options) *Cache[K, T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "advisor.insight." + name})
	ctx, cancel := context.WithCancel(ctx)

	c := &Cache[K, T]{
		name:    name,
		fetch:   fetch,
		keyOf:   keyOf,
		ttl:     opts.TTL,
		settle:  opts.SettleDelay,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[K]*entry[T]),
	}
	if signal != nil {
		c.unsubscribe = signal.Subscribe(c.onDataChanged)
	}
	return c
}

// Snapshot returns the last fetched value for k, fresh or not.
func (c *Cache[K, T]) Snapshot(k K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok && e.has {
		return e.value, true
	}
	var zero T
	return zero, false
}

func (c *Cache[K, T]) Status(k K) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(c.entries[k])
}

// Refresh returns a fresh snapshot for k, fetching when needed. Concurrent
// callers share one fetch. If ctx ends first the caller gets the current
// snapshot while the fetch carries on and is cached. Fetch errors are logged
// and the previous snapshot, if any, is returned.
func (c *Cache[K, T]) Refresh(ctx context.Context, k K, force bool) (T, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.Snapshot(k)
	}
	e := c.entryLocked(k)
	if !force && c.statusLocked(e) == StatusFresh {
		v := e.value
		c.mu.Unlock()
		return v, true
	}
	if force {
		e.forcedStale = true
	}
	c.mu.Unlock()

	select {
	case res := <-c.start(k, force):
		if res.Err == nil {
			return res.Val.(T), true
		}
		return c.Snapshot(k)
	case <-ctx.Done():
		return c.Snapshot(k)
	}
}

// Subscribe registers fn for every new snapshot of k. A fresh snapshot is
// delivered before Subscribe returns; a stale one is delivered and then
// refreshed in the background; with nothing cached a fetch is started.
func (c *Cache[K, T]) Subscribe(k K, fn func(T)) func() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	e := c.entryLocked(k)
	id := c.nextSub
	c.nextSub++
	e.subs[id] = fn

	status := c.statusLocked(e)
	value, has := e.value, e.has
	if status == StatusFresh && e.ttlTimer == nil {
		c.armTTLLocked(k, e, c.ttl-time.Since(e.fetchedAt))
	}
	c.mu.Unlock()

	if has {
		fn(value)
	}
	if status == StatusStale || status == StatusEmpty {
		c.start(k, false)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribeKey(k, id) })
	}
}

// Close stops all timers, cancels in-flight fetches and waits for them.
func (c *Cache[K, T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		stopTimers(e)
	}
	c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.cancel()
	c.fetches.Wait()
}

func (c *Cache[K, T]) unsubscribeKey(k K, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return
	}
	delete(e.subs, id)
	if len(e.subs) == 0 {
		stopTimers(e)
	}
}

func (c *Cache[K, T]) start(k K, force bool) <-chan singleflight.Result {
	return c.group.DoChan(c.keyOf(k), func() (any, error) {
		return c.run(k, force)
	})
}

func (c *Cache[K, T]) run(k K, force bool) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, context.Canceled
	}
	e := c.entryLocked(k)
	if !force && c.statusLocked(e) == StatusFresh {
		// A fetch for k finished between the caller's check and this one.
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.fetches.Add(1)
	e.fetching = true
	c.mu.Unlock()
	defer c.fetches.Done()

	v, err := c.fetch(c.ctx, k, force)

	c.mu.Lock()
	e = c.entryLocked(k)
	e.fetching = false
	if err != nil {
		if !advisory.IsCanceled(err) {
			slog.WarnContext(c.ctx, "advisory snapshot refresh failed",
				"key", c.keyOf(k),
				"forced", force,
				"error", err)
		}
		if !c.closed && len(e.subs) > 0 {
			c.armTTLLocked(k, e, c.ttl)
		}
		c.mu.Unlock()
		return nil, err
	}

	e.value = v
	e.has = true
	e.fetchedAt = time.Now()
	e.forcedStale = false
	subs := make([]func(T), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	if !c.closed && len(subs) > 0 {
		c.armTTLLocked(k, e, c.ttl)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return v, nil
}

func (c *Cache[K, T]) onDataChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for k, e := range c.entries {
		if len(e.subs) == 0 || e.settleTimer != nil {
			continue
		}
		e.settleGen++
		gen := e.settleGen
		e.settleTimer = time.AfterFunc(c.settle, func() { c.onSettled(k, gen) })
	}
}

func (c *Cache[K, T]) onSettled(k K, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || c.closed || e.settleTimer == nil || e.settleGen != gen {
		c.mu.Unlock()
		return
	}
	e.settleTimer = nil
	if len(e.subs) == 0 {
		c.mu.Unlock()
		return
	}
	e.forcedStale = true
	c.mu.Unlock()

	c.start(k, true)
}

func (c *Cache[K, T]) onTTL(k K, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || c.closed || e.ttlTimer == nil || e.ttlGen != gen {
		c.mu.Unlock()
		return
	}
	e.ttlTimer = nil
	if len(e.subs) == 0 {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.start(k, false)
}

func (c *Cache[K, T]) armTTLLocked(k K, e *entry[T], d time.Duration) {
	if e.ttlTimer != nil {
		e.ttlTimer.Stop()
	}
	if d < 0 {
		d = 0
	}
	e.ttlGen++
	gen := e.ttlGen
	e.ttlTimer = time.AfterFunc(d, func() { c.onTTL(k, gen) })
}

func (c *Cache[K, T]) entryLocked(k K) *entry[T] {
	e, ok := c.entries[k]
	if !ok {
		e = &entry[T]{subs: make(map[uint64]func(T))}
		c.entries[k] = e
	}
	return e
}

func (c *Cache[K, T]) statusLocked(e *entry[T]) Status {
	switch {
	case e == nil:
		return StatusEmpty
	case e.fetching:
		return StatusFetching
	case !e.has:
		return StatusEmpty
	case e.forcedStale || time.Since(e.fetchedAt) >= c.ttl:
		return StatusStale
	default:
		return StatusFresh
	}
}

func stopTimers[T any](e *entry[T]) {
	if e.ttlTimer != nil {
		e.ttlTimer.Stop()
		e.ttlTimer = nil
	}
	if e.settleTimer != nil {
		e.settleTimer.Stop()
		e.settleTimer = nil
	}
}
