package dataloader

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the pending outcome of one key. Every caller of the same key
// shares one Result.
type Result[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func newResult[V any]() *Result[V] {
	return &Result[V]{done: make(chan struct{})}
}

func (r *Result[V]) resolve(v V, err error) {
	r.value, r.err = v, err
	close(r.done)
}

// Done is closed once the result is resolved.
func (r *Result[V]) Done() <-chan struct{} { return r.done }

// Wait blocks until the result is resolved or ctx ends.
func (r *Result[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Option configures a Loader.
type Option func(*config)

type config struct {
	wait time.Duration
}

// WithWait dispatches automatically once d has passed since the first key
// of a batch was enqueued. Without it, batches are dispatched by Dispatch
// only.
func WithWait(d time.Duration) Option {
	return func(c *config) { c.wait = d }
}

// Loader coalesces the lookups of one request into batched fetches and
// caches every result for the lifetime of the loader. It is safe for
// concurrent use.
type Loader[K comparable, V any] struct {
	fetch BatchFunc[K, V]
	cfg   config

	mu      sync.Mutex
	cache   map[K]*Result[V]
	pending []K
	timer   *time.Timer
}

// NewLoader returns a loader fetching through fetch.
func NewLoader[K comparable, V any](fetch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	l := &Loader[K, V]{fetch: fetch, cache: make(map[K]*Result[V])}
	for _, opt := range opts {
		opt(&l.cfg)
	}
	return l
}

// Load enqueues key unless it was requested before, and returns its result.
func (l *Loader[K, V]) Load(ctx context.Context, key K) *Result[V] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.cache[key]; ok {
		return r
	}
	r := newResult[V]()
	l.cache[key] = r
	l.pending = append(l.pending, key)
	if l.cfg.wait > 0 && l.timer == nil {
		// The batch may outlive the first caller, not the request.
		ctx := context.WithoutCancel(ctx)
		l.timer = time.AfterFunc(l.cfg.wait, func() { l.Dispatch(ctx) })
	}
	return r
}

// LoadMany loads every key and returns the results in key order.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) []*Result[V] {
	rs := make([]*Result[V], len(keys))
	for i, k := range keys {
		rs[i] = l.Load(ctx, k)
	}
	return rs
}

// Dispatch fetches every pending key in one batch, in enqueue order, and
// resolves their results. It returns the number of keys fetched.
func (l *Loader[K, V]) Dispatch(ctx context.Context) int {
	l.mu.Lock()
	keys := l.pending
	l.pending = nil
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	results := make([]*Result[V], len(keys))
	for i, k := range keys {
		results[i] = l.cache[k]
	}
	l.mu.Unlock()
	if len(keys) == 0 {
		return 0
	}

	values, errs := l.fetch(ctx, keys)
	batchErr := batchError(len(keys), len(values), errs)
	for i, r := range results {
		if batchErr != nil {
			var zero V
			r.resolve(zero, batchErr)
			continue
		}
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		r.resolve(values[i], err)
	}
	return len(keys)
}

// batchError returns the error failing a whole batch of n keys, if any.
func batchError(n, values int, errs []error) error {
	if len(errs) == 1 && errs[0] != nil && (n > 1 || values != n) {
		return errs[0]
	}
	if values != n {
		return fmt.Errorf("dataloader: batch returned %d values for %d keys", values, n)
	}
	return nil
}

// Prime stores a known value unless the key was requested before.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return
	}
	r := newResult[V]()
	r.resolve(value, nil)
	l.cache[key] = r
}

// Clear drops a resolved key so the next Load fetches it again. Pending keys
// are kept.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.cache[key]; ok {
		select {
		case <-r.done:
			delete(l.cache, key)
		default:
		}
	}
}
