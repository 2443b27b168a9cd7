// Spotify Web API resource client built on the request executor.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// AuthURL is the Spotify authorization endpoint.
func AuthURL() string { return spotifyAuthURL }

// TokenURL is the Spotify token endpoint.
func TokenURL() string { return spotifyTokenURL }

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifyClient provides typed access to Spotify Web API resources through a
// [Requester]. Resilience (rate-limit gating, retries, token refresh) lives
// in the executor; this layer only routes and maps responses.
type SpotifyClient struct {
	requester Requester
}

// NewSpotifyClient creates a client over the given requester.
func NewSpotifyClient(requester Requester) *SpotifyClient {
	return &SpotifyClient{requester: requester}
}

func (s *SpotifyClient) Name() string {
	return "Spotify"
}

// get performs a GET and decodes the JSON body into result.
func (s *SpotifyClient) get(ctx context.Context, path string, query url.Values, result any) error {
	resp, err := s.requester.Do(ctx, RequestSpec{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyClient) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	query.Set("offset", fmt.Sprintf("%d", offset))

	var page SpotifyPaginatedPlaylists
	if err := s.get(ctx, "/me/playlists", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllPlaylists retrieves every playlist for the authenticated user,
// following pagination.
func (s *SpotifyClient) AllPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	var all []PlaylistSummary
	limit := 50
	offset := 0

	for {
		page, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			all = append(all, PlaylistSummary{
				ID:         sp.ID,
				Name:       sp.Name,
				Owner:      sp.Owner.DisplayName,
				TrackCount: sp.Tracks.Total,
				Public:     sp.Public,
			})
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// Playlist retrieves a playlist by ID mapped to the neutral model.
func (s *SpotifyClient) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var sp SpotifySimplePlaylist
	if err := s.get(ctx, fmt.Sprintf("/playlists/%s", playlistID), nil, &sp); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Owner:       sp.Owner.DisplayName,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}, nil
}

// UnfollowPlaylist removes a playlist from the user's library. Spotify has
// no hard delete; unfollowing an owned playlist is its deletion operation.
func (s *SpotifyClient) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument)
	}

	_, err := s.requester.Do(ctx, RequestSpec{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/playlists/%s/followers", playlistID),
	})
	return err
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyClient) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	query.Set("offset", fmt.Sprintf("%d", offset))

	var page SpotifyPaginatedTracks
	if err := s.get(ctx, "/me/tracks", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RemoveSavedTracks removes up to 50 tracks from the user's library.
func (s *SpotifyClient) RemoveSavedTracks(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrMissingArgument)
	}
	if len(trackIDs) > 50 {
		return fmt.Errorf("%w: maximum 50 track IDs allowed", shared.ErrInvalidArgument)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(trackIDs, ","))

	_, err := s.requester.Do(ctx, RequestSpec{
		Method: http.MethodDelete,
		Path:   "/me/tracks",
		Query:  query,
	})
	return err
}

// AsTrack maps a Spotify track to the neutral model.
func AsTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:       st.ID,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
		ISRC:     st.ExternalIDs.ISRC,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}
