package tasks

import (
	"fmt"

	"github.com/temerold/heart-all/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display and logging.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchTracks
	CheckExisting
	SaveBatches
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case CheckExisting:
		return "check_existing"
	case SaveBatches:
		return "save_batches"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", playlistID),
	}
}

func foundPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, pl.TrackCount),
	}
}

func pageFetchedUpdate(page models.PageInfo) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    page.Fetched,
		Total:   page.Total,
		Message: fmt.Sprintf("Fetched page at offset %d (%d/%d tracks queued)", page.Offset, page.Fetched, page.Total),
	}
}

func collectedUpdate(fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Queued %d saveable tracks", fetched),
	}
}

func containsFailedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckExisting,
		Message: fmt.Sprintf("Could not check saved state, continuing: %v", err),
	}
}

func nothingToSaveUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveBatches,
		Message: "Playlist has no saveable tracks, nothing to do",
	}
}

func batchSavedUpdate(step, total, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveBatches,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Saved batch of %d tracks", step, total, size),
	}
}

func batchFailedUpdate(step, total int, ids []string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveBatches,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Batch failed (%d tracks: %v): %v", step, total, len(ids), ids, err),
	}
}
