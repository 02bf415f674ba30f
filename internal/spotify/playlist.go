package spotify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/temerold/heart-all/internal/models"
)

// Playlist retrieves playlist metadata by ID.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var playlist Playlist
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:         playlist.ID,
		Name:       playlist.Name,
		Owner:      playlist.Owner.DisplayName,
		TrackCount: playlist.Tracks.Total,
		Public:     playlist.Public,
	}, nil
}

// PlaylistTracks retrieves the complete ordered track listing of a playlist,
// advancing an offset cursor in [PageLimit] steps until the API reports no
// further page or returns a short page. Local files and entries without a
// track ID are skipped.
//
// onPage, when non-nil, is invoked once per fetched page for progress
// reporting.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		page, err := c.playlistItems(ctx, playlistID, PageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" || item.IsLocal {
				continue
			}

			track := models.Track{
				ID:    item.Track.ID,
				Title: item.Track.Name,
			}
			if len(item.Track.Artists) > 0 {
				track.Artist = item.Track.Artists[0].Name
			}
			tracks = append(tracks, track)
		}

		if onPage != nil {
			onPage(models.PageInfo{Offset: offset, Fetched: len(tracks), Total: page.Total})
		}

		if page.Next == nil || len(page.Items) < PageLimit {
			break
		}
		offset += PageLimit
	}

	return tracks, nil
}

// playlistItems fetches one page of the playlist track listing.
func (c *Client) playlistItems(ctx context.Context, playlistID string, limit, offset int) (*PlaylistItemsPage, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var page PlaylistItemsPage
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}
