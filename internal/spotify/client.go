package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/temerold/heart-all/internal/models"
	"github.com/temerold/heart-all/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// PageLimit is the page size for paginated listing endpoints.
	PageLimit = 100

	// BatchLimit is the largest batch the library endpoints accept per request.
	BatchLimit = 50

	defaultMaxRetries = 3
)

// Service is the full client surface consumed by the CLI runner. Implemented
// by [*Client]; commands and tests depend on the interface.
type Service interface {
	Library

	AuthURL(state string) string
	OAuthConfig() *oauth2.Config
	Authenticate(ctx context.Context, token *oauth2.Token) error
	Token() (*oauth2.Token, error)
	CurrentUser(ctx context.Context) (*User, error)
}

// Library is the read/write library surface the save engine needs.
type Library interface {
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, onPage func(models.PageInfo)) ([]models.Track, error)
	SaveTracks(ctx context.Context, ids []string) error
	ContainsTracks(ctx context.Context, ids []string) ([]bool, error)
}

// Client talks to the Spotify Web API. Uses [oauth2] for authentication and
// token refresh.
type Client struct {
	config      *oauth2.Config
	token       *oauth2.Token
	tokenSource oauth2.TokenSource
	base        *http.Client // transport without credentials
	httpClient  *http.Client // base wrapped by the oauth2 transport after Authenticate
	baseURL     string
	limiter     *rate.Limiter
	maxRetries  int
}

var _ Service = (*Client)(nil)

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL points the client at a different API host. Used by tests to
// target an httptest server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client, preserved as the base
// transport under the oauth2 client after Authenticate.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.base = hc
		c.httpClient = hc
	}
}

// WithRateLimit replaces the request pacing limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a Spotify client with the given OAuth2 credentials
// (client_id, client_secret, redirect_uri).
func New(credentials map[string]string, opts ...Option) (*Client, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-library-read",
			"user-library-modify",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	c := &Client{
		config:     config,
		base:       http.DefaultClient,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(10), 2),
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (c *Client) AuthURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// OAuthConfig exposes the underlying OAuth2 configuration for the
// authorization flow.
func (c *Client) OAuthConfig() *oauth2.Config {
	return c.config
}

// Authenticate installs an issued token. Subsequent requests carry the
// bearer token and refresh it automatically through the oauth2 transport.
// Calling it again, after a reauthorization, discards the previous oauth2
// wrapper entirely so the new token is the one on the wire.
func (c *Client) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: no access token", shared.ErrAuthFailed)
	}

	// Always wrap the credential-free base client, never a prior wrapper.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	c.token = token
	c.tokenSource = c.config.TokenSource(ctx, token)
	c.httpClient = oauth2.NewClient(ctx, c.tokenSource)
	return nil
}

// Token returns the current token from the token source so callers can
// persist a refreshed token after a run.
func (c *Client) Token() (*oauth2.Token, error) {
	if c.tokenSource == nil {
		return nil, fmt.Errorf("%w: not authenticated", shared.ErrAuthFailed)
	}
	return c.tokenSource.Token()
}

// CurrentUser retrieves the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// doRequest performs an authenticated HTTP request against the API, encoding
// body as JSON when present and decoding the response into result. 429
// responses are retried up to maxRetries times, honoring Retry-After.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if c.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrAuthFailed)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	apiURL := c.baseURL + endpoint

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			wait := retryAfter(resp, attempt)
			resp.Body.Close()
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			continue
		}

		return c.finishRequest(resp, result)
	}
}

// finishRequest maps non-2xx statuses onto the shared error taxonomy and
// decodes successful responses.
func (c *Client) finishRequest(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	message := ""
	var envelope apiError
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		message = envelope.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: status 403: %s", shared.ErrAuthFailed, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: gave up after %d retries", shared.ErrRateLimited, c.maxRetries)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, message)
	}
}

// retryAfter determines how long to wait before retrying a 429 response,
// falling back to exponential backoff when the header is absent.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
