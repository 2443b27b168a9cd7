package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/desertthunder/cadence/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TracksList lists one page of the user's saved tracks.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	offset := cmd.Int("offset")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	page, err := r.spotify.SavedTracks(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(page, pretty)
	}

	r.writePlain("Saved tracks %d-%d of %d\n\n", offset+1, offset+len(page.Items), page.Total)
	for _, item := range page.Items {
		track := services.AsTrack(item.Track)
		r.writePlain("%s - %s (%s)\n", track.Artist, track.Title, track.ID)
	}

	return nil
}

// TracksRemove removes saved tracks from the library, batching the IDs into
// chunks the remote API accepts.
func (r *Runner) TracksRemove(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track ID is required", shared.ErrMissingArgument)
	}

	opts := tasks.BatchOpts{
		MaxConcurrency: r.config.Client.MaxConcurrency,
		BatchDelay:     time.Duration(r.config.Client.BatchDelayMS) * time.Millisecond,
		RateLimit:      r.config.Client.RateLimit,
	}

	op := func(ctx context.Context, id string) error {
		return r.spotify.RemoveSavedTracks(ctx, []string{id})
	}

	r.logger.Info("removing saved tracks", "count", len(ids))

	results := r.runBatch(ctx, ids, op, opts)
	return r.writePlain("%s", formatter.BatchReport(results))
}
