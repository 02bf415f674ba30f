package tasks

import (
	"context"
	"fmt"

	"github.com/temerold/heart-all/internal/models"
	"github.com/temerold/heart-all/internal/shared"
	"github.com/temerold/heart-all/internal/spotify"
)

// BatchResult records the outcome of one save batch. IDs are retained so a
// failed batch can be retried manually from the log.
type BatchResult struct {
	Index int      // Zero-based batch index
	IDs   []string // Track identifiers submitted in this batch
	Err   error    // nil on success
}

// RunResult summarizes a full fetch-and-save run.
type RunResult struct {
	Playlist      *models.Playlist // Playlist metadata, nil if fetch never completed
	Tracks        []models.Track   // Every saveable track collected from the playlist
	AlreadySaved  int              // Tracks the library already contained before the run
	SavedBatches  int              // Batches accepted by the remote API
	FailedBatches int              // Batches that errored
	Batches       []BatchResult    // Per-batch outcomes, in submission order
}

// Engine orchestrates the save pipeline against a [spotify.Library].
type Engine struct {
	svc           spotify.Library
	batchSize     int
	checkExisting bool
}

// EngineOpt configures an [Engine].
type EngineOpt func(*Engine)

// WithBatchSize overrides the save batch size. Values above the API maximum
// are clamped.
func WithBatchSize(n int) EngineOpt {
	return func(e *Engine) {
		if n > 0 && n <= spotify.BatchLimit {
			e.batchSize = n
		}
	}
}

// WithoutExistingCheck disables the read-only pass that counts tracks
// already present in the library before saving.
func WithoutExistingCheck() EngineOpt {
	return func(e *Engine) { e.checkExisting = false }
}

// NewEngine creates an Engine bound to the given library service.
func NewEngine(svc spotify.Library, opts ...EngineOpt) *Engine {
	e := &Engine{
		svc:           svc,
		batchSize:     spotify.BatchLimit,
		checkExisting: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Collect fetches playlist metadata and the complete ordered track listing.
// An empty playlist yields an empty slice, not an error. This is the pure
// read path; nothing is mutated.
func (e *Engine) Collect(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*models.Playlist, []models.Track, error) {
	e.sendProgress(progress, fetchPlaylistUpdate(playlistID))

	playlist, err := e.svc.Playlist(ctx, playlistID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
	}

	e.sendProgress(progress, foundPlaylistUpdate(playlist))

	tracks, err := e.svc.PlaylistTracks(ctx, playlistID, func(page models.PageInfo) {
		e.sendProgress(progress, pageFetchedUpdate(page))
	})
	if err != nil {
		return playlist, nil, fmt.Errorf("failed to fetch tracks of playlist %s: %w", playlistID, err)
	}

	e.sendProgress(progress, collectedUpdate(len(tracks), playlist.TrackCount))
	return playlist, tracks, nil
}

// Save submits every collected track identifier to the library in
// consecutive batches. Batches that fail are recorded and the run continues
// with the remaining batches. The returned result is always populated; the
// error wraps [shared.ErrPartialSave] when at least one batch failed.
func (e *Engine) Save(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{Tracks: tracks}

	if len(tracks) == 0 {
		e.sendProgress(progress, nothingToSaveUpdate())
		return result, nil
	}

	ids := models.IDs(tracks)

	if e.checkExisting {
		result.AlreadySaved = e.countExisting(ctx, ids, progress)
	}

	batches := partition(ids, e.batchSize)
	for i, batch := range batches {
		br := BatchResult{Index: i, IDs: batch}

		if err := e.svc.SaveTracks(ctx, batch); err != nil {
			br.Err = err
			result.FailedBatches++
			e.sendProgress(progress, batchFailedUpdate(i+1, len(batches), batch, err))
		} else {
			result.SavedBatches++
			e.sendProgress(progress, batchSavedUpdate(i+1, len(batches), len(batch)))
		}

		result.Batches = append(result.Batches, br)
	}

	if result.FailedBatches > 0 {
		return result, fmt.Errorf("%w: %d of %d batches failed",
			shared.ErrPartialSave, result.FailedBatches, len(batches))
	}
	return result, nil
}

// Run executes the full pipeline: collect every track, then save in batches.
// The fetch completes in full before saving begins, so an incomplete track
// list is never partially saved.
func (e *Engine) Run(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*RunResult, error) {
	playlist, tracks, err := e.Collect(ctx, playlistID, progress)
	if err != nil {
		return nil, err
	}

	result, err := e.Save(ctx, tracks, progress)
	result.Playlist = playlist
	return result, err
}

// countExisting runs the read-only contains pass used for reporting. Errors
// here never fail the run; the save endpoint is idempotent regardless.
func (e *Engine) countExisting(ctx context.Context, ids []string, progress chan<- ProgressUpdate) int {
	existing := 0
	for _, chunk := range partition(ids, e.batchSize) {
		contained, err := e.svc.ContainsTracks(ctx, chunk)
		if err != nil {
			e.sendProgress(progress, containsFailedUpdate(err))
			return existing
		}
		for _, saved := range contained {
			if saved {
				existing++
			}
		}
	}
	return existing
}

// partition splits ids into consecutive chunks of at most size elements,
// preserving order and covering every element exactly once.
func partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = spotify.BatchLimit
	}

	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
