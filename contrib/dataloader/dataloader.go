// Package dataloader batches the key lookups of one request.
//
// A Loader collects the keys requested before it is dispatched, fetches
// every distinct key once, and hands each caller its own result. Keys
// without a record resolve to an error matching ErrNotFound, so callers can
// tell "no data" from "not requested".
//
//	users := dataloader.NewLoader(func(ctx context.Context, ids []int64) ([]*User, []error) {
//	    rows, err := store.UsersByID(ctx, ids)
//	    if err != nil {
//	        return nil, []error{err}
//	    }
//	    return dataloader.OrderByKeys(ids, rows, func(u *User) int64 { return u.ID })
//	}, dataloader.WithWait(2*time.Millisecond))
//
// Loaders hold a cache and must not outlive the request they serve; create
// them per request and scope them with WithLoaders:
//
//	ctx = dataloader.WithLoaders(ctx, &Loaders{Users: users})
//	author, err := dataloader.For[*Loaders](ctx).Users.Load(ctx, post.UserID).Wait(ctx)
package dataloader

import (
	"context"

	"github.com/syssam/synapse"
)

// ErrNotFound matches the error of a key without a record.
var ErrNotFound = synapse.ErrNotFound

// KeyFunc extracts the key of a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc fetches the values of a batch of distinct keys. The results are
// aligned with keys; a single error fails the whole batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys aligns values with the keys that requested them. Keys without
// a value get the zero value and a not-found error.
func OrderByKeys[K comparable, V any](keys []K, values []V, key KeyFunc[K, V]) ([]V, []error) {
	byKey := make(map[K]V, len(values))
	for _, v := range values {
		byKey[key(v)] = v
	}
	out, errs := make([]V, len(keys)), make([]error, len(keys))
	for i, k := range keys {
		v, ok := byKey[k]
		if !ok {
			errs[i] = synapse.NewNotFoundErrorWithKey("record", k)
			continue
		}
		out[i] = v
	}
	return out, errs
}

// GroupByKey groups values by key, preserving their order within a group.
// It serves to-many lookups keyed by a foreign key.
func GroupByKey[K comparable, V any](values []V, key KeyFunc[K, V]) map[K][]V {
	groups := make(map[K][]V)
	for _, v := range values {
		k := key(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}

// OrderGroupsByKeys aligns groups with the keys that requested them. A key
// without values gets an empty group, which is not an error.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) ([][]V, []error) {
	out := make([][]V, len(keys))
	for i, k := range keys {
		out[i] = groups[k]
		if out[i] == nil {
			out[i] = []V{}
		}
	}
	return out, make([]error, len(keys))
}

// CachePrimer stores known values.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany stores values under their keys, e.g. the records a mutation
// returned.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, key KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(key(v), v)
	}
}

// CacheClearer drops cached keys.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany drops keys from a cache.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, k := range keys {
		cache.Clear(k)
	}
}

type ctxKey struct{}

// WithLoaders returns a context carrying the loaders of one request.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For returns the loaders stored by WithLoaders, or the zero value.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
