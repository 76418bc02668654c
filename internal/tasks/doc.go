// Package tasks loads playlist references into queue-ready data with real-time progress reporting.
//
// # Loading
//
// [Loader.Load] runs in three phases:
//
//  1. [ResolveRefs] : every reference is fetched by a bounded worker pool, rate limited, results kept in reference order
//  2. [LoadCache] : metadata already in the sqlite cache is read for the flattened ids
//  3. [FetchMediaInfo] : the remaining ids are fetched per provider and written back to the cache
//
// A reference that fails to resolve is reported in [LoadResult.Failed] and skipped. The load fails only when
// nothing resolved. Metadata failures never fail a load; tracks without metadata render with their id.
//
// # Progress Reporting
//
// Updates are sent with select and default so a slow reader never blocks a load.
package tasks
