package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/services"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 4
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
)

// ErrNothingLoaded is returned when no reference resolved.
var ErrNothingLoaded = errors.New("no playlists loaded")

// MediaCache stores metadata between runs. Implemented by repositories.MediaInfoRepository.
type MediaCache interface {
	GetMany(ctx context.Context, provider models.Provider, ids []string) (map[string]models.MediaInfo, error)
	PutMany(ctx context.Context, provider models.Provider, entries map[string]models.MediaInfo) error
}

// RefError records a reference that could not be resolved.
type RefError struct {
	Ref models.PlaylistRef
	Err error
}

func (e RefError) Error() string { return fmt.Sprintf("%s: %v", e.Ref, e.Err) }

func (e RefError) Unwrap() error { return e.Err }

// LoadResult is everything a [queue.ReplacePlaylists] needs.
type LoadResult struct {
	Playlists []models.PlaylistInfo
	MediaInfo models.MediaInfoMap
	Failed    []RefError
}

// Intent returns the intent that installs the loaded playlists.
func (r *LoadResult) Intent() queue.ReplacePlaylists {
	return queue.ReplacePlaylists{Playlists: r.Playlists, MediaInfo: r.MediaInfo}
}

// Queue returns the flattened ids in playlist order.
func (r *LoadResult) Queue() []models.MediaID {
	return models.Flatten(r.Playlists)
}

// Loader resolves references through the provider fetchers.
type Loader struct {
	fetchers services.Fetchers
	cache    MediaCache
	workers  int
	limiter  *rate.Limiter
	logger   *log.Logger
}

type LoaderOption func(*Loader)

// WithCache reads and writes metadata through c. Without a cache every id is fetched.
func WithCache(c MediaCache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// WithWorkers bounds the resolve pool to n, capped at [MaxWorkers].
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = min(n, MaxWorkers)
		}
	}
}

// WithRateLimit limits reference fetches to rps per second.
func WithRateLimit(rps float64) LoaderOption {
	return func(l *Loader) {
		if rps > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(fetchers services.Fetchers, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetchers: fetchers,
		workers:  DefaultWorkers,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// sendProgress sends a progress update through the channel without blocking.
func (l *Loader) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Load resolves refs and gathers metadata for every track in them. progress may be nil.
func (l *Loader) Load(ctx context.Context, progress chan<- ProgressUpdate, refs []models.PlaylistRef) (*LoadResult, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no playlists to load", ErrNothingLoaded)
	}

	result := &LoadResult{MediaInfo: models.MediaInfoMap{}}

	playlists, failed := l.resolve(ctx, progress, refs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Failed = failed
	for _, p := range playlists {
		if p != nil {
			result.Playlists = append(result.Playlists, *p)
		}
	}
	if len(result.Playlists) == 0 {
		errs := make([]error, len(failed))
		for i, f := range failed {
			errs[i] = f
		}
		return result, fmt.Errorf("%w: %w", ErrNothingLoaded, errors.Join(errs...))
	}

	l.gatherMediaInfo(ctx, progress, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.sendProgress(progress, doneUpdate(result))
	return result, nil
}

type resolveJob struct {
	index int
	ref   models.PlaylistRef
}

type resolveResult struct {
	index int
	info  *models.PlaylistInfo
	err   error
}

// resolve fetches every ref with a worker pool. The returned slice is indexed like refs.
func (l *Loader) resolve(ctx context.Context, progress chan<- ProgressUpdate, refs []models.PlaylistRef) ([]*models.PlaylistInfo, []RefError) {
	jobs := make(chan resolveJob, len(refs))
	results := make(chan resolveResult, len(refs))

	l.sendProgress(progress, resolvingUpdate(len(refs)))

	var wg sync.WaitGroup
	for range min(l.workers, len(refs)) {
		wg.Add(1)
		go l.resolveWorker(ctx, &wg, jobs, results)
	}

	for i, ref := range refs {
		jobs <- resolveJob{index: i, ref: ref}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]*models.PlaylistInfo, len(refs))
	errs := make([]*RefError, len(refs))
	completed := 0
	for res := range results {
		completed++
		ref := refs[res.index]
		if res.err != nil {
			l.logger.Warn("failed to resolve playlist", "ref", ref, "error", res.err)
			errs[res.index] = &RefError{Ref: ref, Err: res.err}
			l.sendProgress(progress, resolveFailedUpdate(completed, len(refs), ref, res.err))
			continue
		}
		out[res.index] = res.info
		l.sendProgress(progress, resolvedUpdate(completed, len(refs), res.info))
	}

	var failed []RefError
	for _, e := range errs {
		if e != nil {
			failed = append(failed, *e)
		}
	}
	return out, failed
}

func (l *Loader) resolveWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan resolveJob, results chan<- resolveResult) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- resolveResult{index: job.index, err: err}
			continue
		}
		if err := l.limiter.Wait(ctx); err != nil {
			results <- resolveResult{index: job.index, err: err}
			continue
		}

		info, err := l.fetchers.FetchPlaylist(ctx, job.ref)
		results <- resolveResult{index: job.index, info: info, err: err}
	}
}

// gatherMediaInfo fills result.MediaInfo from the cache, then fetches what is left per provider.
func (l *Loader) gatherMediaInfo(ctx context.Context, progress chan<- ProgressUpdate, result *LoadResult) {
	byProvider := map[models.Provider][]string{}
	seen := map[models.MediaID]bool{}
	var order []models.Provider
	for _, id := range result.Queue() {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byProvider[id.Provider]; !ok {
			order = append(order, id.Provider)
		}
		byProvider[id.Provider] = append(byProvider[id.Provider], id.ID)
	}

	total, hits := len(seen), 0
	if l.cache != nil {
		for _, p := range order {
			cached, err := l.cache.GetMany(ctx, p, byProvider[p])
			if err != nil {
				l.logger.Warn("failed to read media cache", "provider", p, "error", err)
				continue
			}
			for id, info := range cached {
				result.MediaInfo.Set(models.MediaID{Provider: p, ID: id}, info)
				hits++
			}
		}
		l.sendProgress(progress, cacheUpdate(hits, total))
	}

	for _, p := range order {
		var missing []string
		for _, id := range byProvider[p] {
			if _, ok := result.MediaInfo.Get(models.MediaID{Provider: p, ID: id}); !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			continue
		}

		fetcher, err := l.fetchers.For(p)
		if err != nil {
			l.logger.Warn("no metadata source", "provider", p, "error", err)
			continue
		}

		l.sendProgress(progress, fetchMediaUpdate(0, len(missing), p))
		fetched, err := fetcher.FetchMediaInfo(ctx, missing)
		if err != nil {
			l.logger.Warn("failed to fetch media info", "provider", p, "error", err)
		}
		l.sendProgress(progress, fetchMediaUpdate(len(fetched), len(missing), p))
		if len(fetched) == 0 {
			continue
		}

		for id, info := range fetched {
			result.MediaInfo.Set(models.MediaID{Provider: p, ID: id}, info)
		}
		if l.cache != nil {
			if err := l.cache.PutMany(ctx, p, fetched); err != nil {
				l.logger.Warn("failed to write media cache", "provider", p, "error", err)
			}
		}
	}
}
