// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/temerold/heart-all/internal/models"
)

// FakeLibrary is a configurable test double for [spotify.Library]. Each
// operation delegates to the corresponding Fn field when set and records the
// submitted identifiers either way.
type FakeLibrary struct {
	PlaylistFn func(ctx context.Context, playlistID string) (*models.Playlist, error)
	TracksFn   func(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error)
	SaveFn     func(ctx context.Context, ids []string) error
	ContainsFn func(ctx context.Context, ids []string) ([]bool, error)

	SaveCalls     [][]string
	ContainsCalls [][]string
}

func (f *FakeLibrary) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if f.PlaylistFn != nil {
		return f.PlaylistFn(ctx, playlistID)
	}
	return &models.Playlist{ID: playlistID, Name: "fake"}, nil
}

func (f *FakeLibrary) PlaylistTracks(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error) {
	if f.TracksFn != nil {
		return f.TracksFn(ctx, playlistID, onPage)
	}
	return nil, nil
}

func (f *FakeLibrary) SaveTracks(ctx context.Context, ids []string) error {
	f.SaveCalls = append(f.SaveCalls, append([]string(nil), ids...))
	if f.SaveFn != nil {
		return f.SaveFn(ctx, ids)
	}
	return nil
}

func (f *FakeLibrary) ContainsTracks(ctx context.Context, ids []string) ([]bool, error) {
	f.ContainsCalls = append(f.ContainsCalls, append([]string(nil), ids...))
	if f.ContainsFn != nil {
		return f.ContainsFn(ctx, ids)
	}
	return make([]bool, len(ids)), nil
}

// Tracks builds n sequential fake tracks (track-1 ... track-n).
func Tracks(n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := 1; i <= n; i++ {
		tracks = append(tracks, models.Track{
			ID:     fmt.Sprintf("track-%d", i),
			Title:  fmt.Sprintf("Title %d", i),
			Artist: "Artist",
		})
	}
	return tracks
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
