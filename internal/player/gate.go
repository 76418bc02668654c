package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// loadGate tracks which load is current. Only the holder of the latest generation may publish a result.
type loadGate struct {
	mu       sync.Mutex
	gen      uint64
	intended models.MediaID
	loaded   models.MediaID
	loading  bool

	// slot admits one SDK start request at a time.
	slot chan struct{}
}

func (g *loadGate) begin(id models.MediaID) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.intended = id
	g.loading = true
	return g.gen
}

func (g *loadGate) current(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gen == g.gen
}

// resolve ends generation gen. It reports false, changing nothing, when gen was superseded.
func (g *loadGate) resolve(gen uint64, ok bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return false
	}
	g.loading = false
	if ok {
		g.loaded = g.intended
	} else {
		g.loaded = models.NoMedia
	}
	return true
}

// start runs fn, the SDK request that begins generation gen, unless gen was superseded first. Starts never
// overlap, so when a superseded start completes late the newer one is issued after it. issued is false
// when fn was skipped.
func (g *loadGate) start(ctx context.Context, gen uint64, fn func(context.Context) error) (issued bool, err error) {
	slot := g.startSlot()
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-slot }()

	if !g.current(gen) {
		return false, nil
	}
	return true, fn(ctx)
}

func (g *loadGate) startSlot() chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.slot == nil {
		g.slot = make(chan struct{}, 1)
	}
	return g.slot
}

func (g *loadGate) state() (loaded models.MediaID, loading bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded, g.loading
}

// await polls ready until it reports true, the timeout passes, ctx ends or gen is superseded.
// A superseded poll returns nil whatever happened.
func (g *loadGate) await(ctx context.Context, gen uint64, r readiness, ready func(context.Context) (bool, error)) error {
	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if !g.current(gen) {
			return nil
		}

		ok, err := ready(ctx)
		if err != nil {
			if g.resolve(gen, false) {
				return err
			}
			return nil
		}
		if ok {
			g.resolve(gen, true)
			return nil
		}

		select {
		case <-ctx.Done():
			if g.resolve(gen, false) {
				return ctx.Err()
			}
			return nil
		case <-deadline.C:
			if g.resolve(gen, false) {
				return fmt.Errorf("%w after %s", shared.ErrLoadTimeout, r.timeout)
			}
			return nil
		case <-ticker.C:
		}
	}
}

// fail resolves gen after a failed start request, returning err only if gen is still current.
func (g *loadGate) fail(gen uint64, err error) error {
	if g.resolve(gen, false) {
		return err
	}
	return nil
}
