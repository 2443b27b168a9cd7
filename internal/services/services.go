package services

import (
	"context"
)

// Requester executes a described API call. Implemented by *Executor;
// abstracted so resource clients and tests can substitute doubles.
type Requester interface {
	Do(ctx context.Context, spec RequestSpec) (*Response, error)
}

// Library defines the music-library operations the CLI and batch layers
// consume. Implemented by *SpotifyClient.
type Library interface {
	// AllPlaylists retrieves every playlist owned or followed by the
	// authenticated user, following pagination.
	AllPlaylists(ctx context.Context) ([]PlaylistSummary, error)

	// UnfollowPlaylist removes the playlist from the user's library. For
	// playlists the user owns this is Spotify's deletion operation.
	UnfollowPlaylist(ctx context.Context, playlistID string) error
}

// PlaylistSummary is the provider-neutral view of a playlist in list output.
type PlaylistSummary struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
	Public     bool
}
