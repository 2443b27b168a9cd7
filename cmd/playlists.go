package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/desertthunder/cadence/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists the user's playlists with an optional limit.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Infof("listing playlists with limit %v", limit)

	playlists, err := r.spotify.AllPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	return r.writePlain("%s", formatter.PlaylistTable(playlists))
}

// PlaylistsDelete unfollows every playlist named on the command line as one
// batch operation, reporting per-item outcomes.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist ID is required", shared.ErrMissingArgument)
	}

	opts := tasks.BatchOpts{
		MaxConcurrency: cmd.Int("concurrency"),
		BatchDelay:     time.Duration(cmd.Int("delay")) * time.Millisecond,
		RateLimit:      r.config.Client.RateLimit,
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = r.config.Client.MaxConcurrency
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = time.Duration(r.config.Client.BatchDelayMS) * time.Millisecond
	}

	r.logger.Info("deleting playlists", "count", len(ids), "concurrency", opts.MaxConcurrency)

	results := r.runBatch(ctx, ids, r.spotify.UnfollowPlaylist, opts)
	return r.writePlain("%s", formatter.BatchReport(results))
}

// runBatch drives the batch engine while streaming progress to the terminal.
func (r *Runner) runBatch(ctx context.Context, ids []string, op tasks.Operation, opts tasks.BatchOpts) []tasks.ItemResult {
	progress := make(chan tasks.ProgressUpdate, len(ids)+16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	results := r.engine.RunBatch(ctx, progress, ids, op, opts)
	close(progress)
	<-done

	return results
}
