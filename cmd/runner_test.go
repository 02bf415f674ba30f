package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temerold/heart-all/internal/authflow"
	"github.com/temerold/heart-all/internal/models"
	"github.com/temerold/heart-all/internal/shared"
	"github.com/temerold/heart-all/internal/spotify"
	itesting "github.com/temerold/heart-all/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// mockService implements [spotify.Service] on top of the shared library fake.
type mockService struct {
	*itesting.FakeLibrary

	authenticated []*oauth2.Token
	userErrs      []error
}

func (m *mockService) AuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (m *mockService) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{ClientID: "test_client_id"}
}

func (m *mockService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}
	m.authenticated = append(m.authenticated, token)
	return nil
}

func (m *mockService) Token() (*oauth2.Token, error) {
	if len(m.authenticated) == 0 {
		return nil, fmt.Errorf("%w: not authenticated", shared.ErrAuthFailed)
	}
	return m.authenticated[len(m.authenticated)-1], nil
}

func (m *mockService) CurrentUser(ctx context.Context) (*spotify.User, error) {
	if len(m.userErrs) > 0 {
		err := m.userErrs[0]
		m.userErrs = m.userErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &spotify.User{ID: "testuser", DisplayName: "Test User"}, nil
}

func newMockService(trackCount int) *mockService {
	return &mockService{
		FakeLibrary: &itesting.FakeLibrary{
			PlaylistFn: func(ctx context.Context, playlistID string) (*models.Playlist, error) {
				return &models.Playlist{ID: playlistID, Name: "Favorites", TrackCount: trackCount}, nil
			},
			TracksFn: func(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error) {
				return itesting.Tracks(trackCount), nil
			},
		},
	}
}

// testConfig builds a complete config whose log file lives under dir.
func testConfig(dir string) *shared.Config {
	return &shared.Config{
		LogFilename: filepath.Join(dir, "run.log"),
		PlaylistID:  "pl1",
		Credentials: shared.CredentialsConfig{
			Spotify: shared.SpotifyConfig{
				ClientID:     "test_client_id",
				ClientSecret: "test_client_secret",
				AccessToken:  "stored-token",
			},
		},
		Server: shared.ServerConfig{Host: "127.0.0.1", Port: 3000},
	}
}

// newTestApp mirrors the wiring in main.
func newTestApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "heartall",
		Flags:    []cli.Flag{configFlag()},
		Action:   r.Save,
		Commands: r.register(),
	}
}

func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newTestApp(r).Run(context.Background(), append([]string{"heartall"}, args...))
}

func TestNewRunner(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})
		if r.logger == nil {
			t.Error("expected a default logger")
		}
		if r.output == nil {
			t.Error("expected a default output writer")
		}
	})

	t.Run("surfaces output write failures", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &itesting.FWriter{}})
		if err := r.writePlain("hello"); err == nil {
			t.Error("expected an error from a failing writer")
		}
	})

	t.Run("registers subcommands", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()
		if len(commands) != 2 {
			t.Fatalf("expected 2 subcommands, got %d", len(commands))
		}
		names := []string{commands[0].Name, commands[1].Name}
		if names[0] != "auth" || names[1] != "init" {
			t.Errorf("expected auth and init, got %v", names)
		}
	})
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	var output strings.Builder
	r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &output})

	if err := runApp(t, r, "init", "--config", path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	itesting.AssertFileExists(t, path)
	content := itesting.MustReadFile(t, path)
	if !strings.Contains(content, "playlist_id") {
		t.Errorf("expected a playlist_id key in the starter config, got %q", content)
	}
	if !strings.Contains(output.String(), path) {
		t.Errorf("expected the config path in the output, got %q", output.String())
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		if err := runApp(t, r, "init", "--config", path); err == nil {
			t.Error("expected an error when the config already exists")
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("runs the flow and persists tokens", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		config := testConfig(dir)
		config.Credentials.Spotify.AccessToken = ""
		svc := newMockService(0)

		var output strings.Builder
		r := NewRunner(RunnerOpts{
			Config:  config,
			Service: svc,
			Flow:    authflow.Static{Tok: &oauth2.Token{AccessToken: "fresh-token", RefreshToken: "fresh-refresh"}},
			Logger:  shared.NewLogger(io.Discard),
			Output:  &output,
		})

		if err := runApp(t, r, "auth", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(svc.authenticated) != 1 || svc.authenticated[0].AccessToken != "fresh-token" {
			t.Errorf("expected the flow token installed, got %+v", svc.authenticated)
		}
		if !strings.Contains(output.String(), "Authorization successful") {
			t.Errorf("expected a success message, got %q", output.String())
		}

		content := itesting.MustReadFile(t, path)
		if !strings.Contains(content, "fresh-token") || !strings.Contains(content, "fresh-refresh") {
			t.Errorf("expected persisted tokens in %s, got %q", path, content)
		}
	})

	t.Run("stale stored token triggers a fresh authorization", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		svc := newMockService(0)
		svc.userErrs = []error{shared.ErrTokenExpired}

		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Flow:    authflow.Static{Tok: &oauth2.Token{AccessToken: "renewed-token"}},
			Logger:  shared.NewLogger(io.Discard),
			Output:  io.Discard,
		})

		if err := runApp(t, r, "auth", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(svc.authenticated) != 2 {
			t.Fatalf("expected the stored then the renewed token installed, got %d", len(svc.authenticated))
		}
		if svc.authenticated[1].AccessToken != "renewed-token" {
			t.Errorf("expected the renewed token installed last, got %s", svc.authenticated[1].AccessToken)
		}
	})

	t.Run("requires credentials", func(t *testing.T) {
		dir := t.TempDir()
		config := testConfig(dir)
		config.Credentials.Spotify.ClientID = ""

		r := NewRunner(RunnerOpts{
			Config: config,
			Logger: shared.NewLogger(io.Discard),
			Output: io.Discard,
		})

		err := runApp(t, r, "auth", "--config", filepath.Join(dir, "config.toml"))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSave(t *testing.T) {
	t.Run("saves all tracks in batches", func(t *testing.T) {
		dir := t.TempDir()
		svc := newMockService(120)

		var output strings.Builder
		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Logger:  shared.NewLogger(io.Discard),
			Output:  &output,
		})

		if err := runApp(t, r, "--config", filepath.Join(dir, "config.toml")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(svc.SaveCalls) != 3 {
			t.Fatalf("expected 3 save requests for 120 tracks, got %d", len(svc.SaveCalls))
		}
		if !strings.Contains(output.String(), "Saved 120/120") {
			t.Errorf("expected a full-save summary, got %q", output.String())
		}

		itesting.AssertFileExists(t, filepath.Join(dir, "run.log"))
	})

	t.Run("rejects bad config before any request", func(t *testing.T) {
		dir := t.TempDir()
		config := testConfig(dir)
		config.PlaylistID = ""
		svc := newMockService(5)

		r := NewRunner(RunnerOpts{
			Config:  config,
			Service: svc,
			Logger:  shared.NewLogger(io.Discard),
			Output:  io.Discard,
		})

		err := runApp(t, r, "--config", filepath.Join(dir, "config.toml"))
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
		if len(svc.SaveCalls) != 0 || len(svc.authenticated) != 0 {
			t.Errorf("expected no requests for invalid config, got %d saves and %d authentications",
				len(svc.SaveCalls), len(svc.authenticated))
		}
	})

	t.Run("partial failure still exits non-zero", func(t *testing.T) {
		dir := t.TempDir()
		svc := newMockService(200)
		svc.SaveFn = func(ctx context.Context, ids []string) error {
			if ids[0] == "track-51" {
				return fmt.Errorf("%w: service unavailable", shared.ErrAPIRequest)
			}
			return nil
		}

		var output strings.Builder
		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Logger:  shared.NewLogger(io.Discard),
			Output:  &output,
		})

		err := runApp(t, r, "--config", filepath.Join(dir, "config.toml"))
		if !errors.Is(err, shared.ErrPartialSave) {
			t.Fatalf("expected ErrPartialSave, got %v", err)
		}

		if len(svc.SaveCalls) != 4 {
			t.Errorf("expected all 4 batches submitted, got %d", len(svc.SaveCalls))
		}
		if !strings.Contains(output.String(), "1 of 4 batches failed") {
			t.Errorf("expected a partial-failure summary, got %q", output.String())
		}

		logContent := itesting.MustReadFile(t, filepath.Join(dir, "run.log"))
		if !strings.Contains(logContent, "track-51") {
			t.Errorf("expected failed track ids in the log file, got %q", logContent)
		}
		// The second batch failed; the log numbers batches from 1 like the
		// progress messages.
		if !strings.Contains(logContent, "batch=2") {
			t.Errorf("expected the failed batch logged as batch 2, got %q", logContent)
		}
	})

	t.Run("empty playlist is a successful no-op", func(t *testing.T) {
		dir := t.TempDir()
		svc := newMockService(0)

		var output strings.Builder
		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Logger:  shared.NewLogger(io.Discard),
			Output:  &output,
		})

		if err := runApp(t, r, "--config", filepath.Join(dir, "config.toml")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.SaveCalls) != 0 {
			t.Errorf("expected no save requests, got %d", len(svc.SaveCalls))
		}
	})

	t.Run("expired token is reauthorized once", func(t *testing.T) {
		dir := t.TempDir()

		svc := newMockService(10)
		fetches := 0
		svc.TracksFn = func(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error) {
			fetches++
			if fetches == 1 {
				return nil, shared.ErrTokenExpired
			}
			return itesting.Tracks(10), nil
		}

		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Flow:    authflow.Static{Tok: &oauth2.Token{AccessToken: "renewed-token"}},
			Logger:  shared.NewLogger(io.Discard),
			Output:  io.Discard,
		})

		if err := runApp(t, r, "--config", filepath.Join(dir, "config.toml")); err != nil {
			t.Fatalf("expected no error after reauthorization, got %v", err)
		}

		if fetches != 2 {
			t.Errorf("expected the fetch to restart once, got %d attempts", fetches)
		}
		if len(svc.SaveCalls) != 1 {
			t.Errorf("expected 1 save request after the retry, got %d", len(svc.SaveCalls))
		}
		last := svc.authenticated[len(svc.authenticated)-1]
		if last.AccessToken != "renewed-token" {
			t.Errorf("expected the renewed token installed, got %s", last.AccessToken)
		}
	})

	t.Run("persists the session token after a successful run", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		svc := newMockService(5)

		r := NewRunner(RunnerOpts{
			Config:  testConfig(dir),
			Service: svc,
			Logger:  shared.NewLogger(io.Discard),
			Output:  io.Discard,
		})

		if err := runApp(t, r, "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := itesting.MustReadFile(t, path)
		if !strings.Contains(content, "stored-token") {
			t.Errorf("expected the session token persisted to %s, got %q", path, content)
		}
	})
}
