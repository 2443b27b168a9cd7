package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/cadence/internal/shared"
)

// fakeRequester records request specs and replays canned responses in order.
type fakeRequester struct {
	specs     []RequestSpec
	responses []*Response
	err       error
}

func (f *fakeRequester) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.specs) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func jsonResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte(body),
		IsJSON:     true,
	}
}

func TestSpotifyClient(t *testing.T) {
	ctx := context.Background()

	t.Run("CurrentUser", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			jsonResponse(`{"id":"user1","display_name":"Test User","product":"premium","followers":{"total":3}}`),
		}}
		client := NewSpotifyClient(requester)

		user, err := client.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "user1" {
			t.Errorf("expected user ID 'user1', got %s", user.ID)
		}
		if user.DisplayName != "Test User" {
			t.Errorf("expected display name 'Test User', got %s", user.DisplayName)
		}
		if user.Followers.Total != 3 {
			t.Errorf("expected 3 followers, got %d", user.Followers.Total)
		}
		if requester.specs[0].Path != "/me" {
			t.Errorf("expected path /me, got %s", requester.specs[0].Path)
		}
	})

	t.Run("UserPlaylists Clamps Limit", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			jsonResponse(`{"items":[],"total":0,"limit":50,"offset":0}`),
		}}
		client := NewSpotifyClient(requester)

		if _, err := client.UserPlaylists(ctx, 200, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := requester.specs[0].Query.Get("limit"); got != "50" {
			t.Errorf("expected limit clamped to 50, got %s", got)
		}
	})

	t.Run("AllPlaylists Follows Pagination", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			jsonResponse(`{
				"items":[{"id":"pl1","name":"First","owner":{"display_name":"Owner"},"public":true,"tracks":{"total":10}}],
				"total":2,"limit":50,"offset":0,"next":"https://api.spotify.com/v1/me/playlists?offset=50"
			}`),
			jsonResponse(`{
				"items":[{"id":"pl2","name":"Second","owner":{"display_name":"Owner"},"public":false,"tracks":{"total":5}}],
				"total":2,"limit":50,"offset":50,"next":null
			}`),
		}}
		client := NewSpotifyClient(requester)

		playlists, err := client.AllPlaylists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "pl1" || playlists[1].ID != "pl2" {
			t.Errorf("unexpected playlist order: %s, %s", playlists[0].ID, playlists[1].ID)
		}
		if playlists[0].TrackCount != 10 {
			t.Errorf("expected 10 tracks, got %d", playlists[0].TrackCount)
		}
		if len(requester.specs) != 2 {
			t.Errorf("expected 2 page requests, got %d", len(requester.specs))
		}
		if got := requester.specs[1].Query.Get("offset"); got != "50" {
			t.Errorf("expected second page offset 50, got %s", got)
		}
	})

	t.Run("Playlist Maps To Model", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			jsonResponse(`{"id":"pl1","name":"Mix","description":"desc","owner":{"display_name":"Owner"},"public":true,"tracks":{"total":7}}`),
		}}
		client := NewSpotifyClient(requester)

		playlist, err := client.Playlist(ctx, "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Mix" || playlist.Owner != "Owner" || playlist.TrackCount != 7 {
			t.Errorf("unexpected mapping: %+v", playlist)
		}
		if requester.specs[0].Path != "/playlists/pl1" {
			t.Errorf("expected path /playlists/pl1, got %s", requester.specs[0].Path)
		}
	})

	t.Run("UnfollowPlaylist", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			{StatusCode: http.StatusOK},
		}}
		client := NewSpotifyClient(requester)

		if err := client.UnfollowPlaylist(ctx, "pl1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		spec := requester.specs[0]
		if spec.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", spec.Method)
		}
		if spec.Path != "/playlists/pl1/followers" {
			t.Errorf("expected followers path, got %s", spec.Path)
		}

		t.Run("Missing ID", func(t *testing.T) {
			if err := client.UnfollowPlaylist(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("RemoveSavedTracks", func(t *testing.T) {
		requester := &fakeRequester{responses: []*Response{
			{StatusCode: http.StatusOK},
		}}
		client := NewSpotifyClient(requester)

		if err := client.RemoveSavedTracks(ctx, []string{"t1", "t2"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		spec := requester.specs[0]
		if spec.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", spec.Method)
		}
		if got := spec.Query.Get("ids"); got != "t1,t2" {
			t.Errorf("expected joined IDs, got %s", got)
		}

		t.Run("Empty IDs", func(t *testing.T) {
			if err := client.RemoveSavedTracks(ctx, nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Over Limit", func(t *testing.T) {
			ids := make([]string, 51)
			for i := range ids {
				ids[i] = "t"
			}
			if err := client.RemoveSavedTracks(ctx, ids); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("Requester Error Propagates", func(t *testing.T) {
		requester := &fakeRequester{err: shared.ErrRateLimited}
		client := NewSpotifyClient(requester)

		if _, err := client.CurrentUser(ctx); !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})
}

func TestAsTrack(t *testing.T) {
	track := AsTrack(SpotifyTrack{
		ID:         "t1",
		Name:       "Song",
		Artists:    []SpotifyArtist{{Name: "Artist A"}, {Name: "Artist B"}},
		Album:      SpotifyAlbum{Name: "Album"},
		DurationMS: 215000,
	})

	if track.Title != "Song" {
		t.Errorf("expected title 'Song', got %s", track.Title)
	}
	if track.Artist != "Artist A" {
		t.Errorf("expected primary artist, got %s", track.Artist)
	}
	if track.Duration != 215 {
		t.Errorf("expected duration in seconds, got %d", track.Duration)
	}

	t.Run("No Artists", func(t *testing.T) {
		track := AsTrack(SpotifyTrack{ID: "t2", Name: "Instrumental"})
		if track.Artist != "" {
			t.Errorf("expected empty artist, got %s", track.Artist)
		}
	})
}
