// Package dataloader provides generic batch-loading utilities: reordering
// and grouping fetched values against the keys that requested them. The
// lazy relation loader builds on it, and it is designed to slot into any
// DataLoader implementation such as:
//   - github.com/graph-gophers/dataloader/v7
//   - github.com/vikstrous/dataloadgen
//
// # Basic Usage
//
// Define a batch function for your values:
//
//	func recordBatchFn(ctx context.Context, ids []string) ([]record.Record, []error) {
//	    recs, err := records.ByIDs(ctx, tableID, ids)
//	    if err != nil {
//	        return nil, []error{err}
//	    }
//	    return dataloader.OrderByKeys(ids, recs, record.Record.ID)
//	}
//
// # Key Extraction
//
// Use KeyFunc to extract keys from values:
//
//	ordered := dataloader.OrderByKeys(ids, recs, func(r record.Record) string { return r.ID() })
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc is a function that loads a batch of entities by their keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders values to match the order of requested keys.
// Missing values are represented as zero values with corresponding errors.
//
// This is essential for batch loading because the result slice must:
//   - Have the same length as the input keys
//   - Have results in the same order as the input keys
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	// Build lookup map
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}

	// Build ordered result
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError reorders entities to match the order of requested keys.
// Returns zero values for missing entities without errors.
// Use this when missing entities are acceptable (e.g., optional relationships).
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups values by a key function. Useful for one-to-many
// relationships where multiple values share the same parent key — the lazy
// loader uses it to fan link edges out per source record:
//
//	edges, _ := links.Edges(ctx, tableID, columnID, parentIDs)
//	grouped := GroupByKey(edges, func(e link.Edge) string { return e.SourceID })
//	// grouped[parentID] contains all edges from that parent
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to match the order of requested
// keys. Returns a slice of slices where each inner slice contains the values
// for that key:
//
//	grouped := GroupByKey(edges, func(e link.Edge) string { return e.SourceID })
//	ordered := OrderGroupsByKeys(parentIDs, grouped)
//	// ordered[i] contains all edges from parentIDs[i]
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// CachePrimer primes a loader cache with known values, useful after
// mutations to keep the cache warm.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes multiple values into a cache.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// CacheClearer clears values from a DataLoader cache.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany clears multiple keys from a cache.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, key := range keys {
		cache.Clear(key)
	}
}

// ctxKey is the context key for storing DataLoaders.
type ctxKey struct{}

// WithLoaders injects request-scoped loaders into the context, for handlers
// that want one loader set per request:
//
//	ctx := dataloader.WithLoaders(ctx, engine.Loader())
//
// For HTTP middleware integration (net/http and friends):
//
//	func LoaderMiddleware(engine *gridbase.Client) func(http.Handler) http.Handler {
//	    return func(next http.Handler) http.Handler {
//	        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	            ctx := dataloader.WithLoaders(r.Context(), engine.Loader())
//	            next.ServeHTTP(w, r.WithContext(ctx))
//	        })
//	    }
//	}
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For extracts the request's loaders from context:
//
//	loader := dataloader.For[*lazy.Loader](ctx)
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}

// BatchResult represents the result of a batch load operation.
type BatchResult[V any] struct {
	Value V
	Error error
}

// NewBatchResult creates a new BatchResult.
func NewBatchResult[V any](value V, err error) BatchResult[V] {
	return BatchResult[V]{Value: value, Error: err}
}

// Results converts separate value and error slices into BatchResult slice.
func Results[V any](values []V, errs []error) []BatchResult[V] {
	results := make([]BatchResult[V], len(values))
	for i := range values {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		results[i] = BatchResult[V]{Value: values[i], Error: err}
	}
	return results
}
