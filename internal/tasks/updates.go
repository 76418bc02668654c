package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during a load.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveRefs Phase = iota
	LoadCache
	FetchMediaInfo
	Done
)

func (p Phase) String() string {
	switch p {
	case ResolveRefs:
		return "resolve_refs"
	case LoadCache:
		return "load_cache"
	case FetchMediaInfo:
		return "fetch_media_info"
	case Done:
		return "done"
	default:
		return ""
	}
}

func resolvingUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveRefs,
		Total:   total,
		Message: fmt.Sprintf("Resolving %d playlist(s)...", total),
	}
}

func resolvedUpdate(step, total int, info *models.PlaylistInfo) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveRefs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, info.Title, info.ItemCount),
		Data:    info,
	}
}

func resolveFailedUpdate(step, total int, ref models.PlaylistRef, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveRefs,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, ref, err),
	}
}

func cacheUpdate(hits, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCache,
		Step:    hits,
		Total:   total,
		Message: fmt.Sprintf("Found %d of %d tracks in cache", hits, total),
	}
}

func fetchMediaUpdate(step, total int, p models.Provider) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMediaInfo,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d track(s) from %s...", total, p),
	}
}

func doneUpdate(result *LoadResult) ProgressUpdate {
	n := len(result.Queue())
	return ProgressUpdate{
		Phase:   Done,
		Step:    n,
		Total:   n,
		Message: fmt.Sprintf("Loaded %d playlist(s), %d tracks", len(result.Playlists), n),
		Data:    result,
	}
}
