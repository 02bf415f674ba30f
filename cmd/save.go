package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temerold/heart-all/internal/shared"
	"github.com/temerold/heart-all/internal/tasks"
	"github.com/temerold/heart-all/internal/ui"
	"github.com/urfave/cli/v3"
)

// Save is the default action: authenticate, fetch the configured playlist,
// and save every track to the user's library in batches.
func (r *Runner) Save(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reject bad configuration before any network call.
	if err := config.Validate(); err != nil {
		return err
	}

	if err := r.useFileLogging(config.LogFilename); err != nil {
		return err
	}
	defer r.closeLogFile()

	if err := r.initService(); err != nil {
		return err
	}

	r.logger.Info("starting run", "playlist", config.PlaylistID, "log", config.LogFilename)

	if err := r.ensureAuthenticated(ctx, configPath); err != nil {
		return err
	}

	engine := tasks.NewEngine(r.svc)

	result, err := r.runEngine(ctx, engine, config.PlaylistID)
	if err != nil && errors.Is(err, shared.ErrTokenExpired) {
		// Restart the whole pipeline after reauthorization; a track list
		// fetched under the old session is discarded, never partially saved.
		r.writePlainln("%s", ui.Warn("⚠ Access token expired, reauthorizing..."))
		if authErr := r.reauthorize(ctx, configPath); authErr != nil {
			return authErr
		}
		result, err = r.runEngine(ctx, engine, config.PlaylistID)
	}

	if result != nil {
		r.report(result)
	}
	if err != nil {
		return err
	}

	if err := r.persistToken(configPath); err != nil {
		r.logger.Warnf("failed to persist refreshed token: %v", err)
	}

	return nil
}

// runEngine executes the pipeline while draining progress updates into the
// log (console and log file).
func (r *Runner) runEngine(ctx context.Context, engine *tasks.Engine, playlistID string) (*tasks.RunResult, error) {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := engine.Run(ctx, playlistID, progress)
	close(progress)
	<-done

	return result, err
}

// report logs failed batches with their track identifiers and prints the
// run summary.
func (r *Runner) report(result *tasks.RunResult) {
	for i, track := range result.Tracks {
		r.logger.Debug("queued track", "n", fmt.Sprintf("%d/%d", i+1, len(result.Tracks)), "id", track.ID, "track", track.Label())
	}

	savedTracks := 0
	for _, batch := range result.Batches {
		if batch.Err != nil {
			// Batches are numbered from 1 in the log, matching the
			// progress messages.
			r.logger.Error("batch failed",
				"batch", batch.Index+1,
				"tracks", len(batch.IDs),
				"ids", strings.Join(batch.IDs, ","),
				"error", batch.Err,
			)
		} else {
			savedTracks += len(batch.IDs)
		}
	}

	if result.Playlist != nil {
		r.writePlainln("%s", ui.Title(fmt.Sprintf("Playlist: %s (%d tracks)", result.Playlist.Name, result.Playlist.TrackCount)))
	}

	if result.FailedBatches == 0 {
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Saved %d/%d tracks in %d batches",
			savedTracks, len(result.Tracks), result.SavedBatches)))
	} else {
		r.writePlain("%s\n", ui.Err(fmt.Sprintf("✗ %d of %d batches failed, %d/%d tracks saved",
			result.FailedBatches, len(result.Batches), savedTracks, len(result.Tracks))))
		r.writePlain("%s\n", ui.Help(fmt.Sprintf("Failed track IDs are listed in %s", r.config.LogFilename)))
	}

	if result.AlreadySaved > 0 {
		r.writePlain("%s\n", ui.Help(fmt.Sprintf("%d tracks were already in your library", result.AlreadySaved)))
	}
}
