package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultLogFilename is used when the config file omits log_filename.
const DefaultLogFilename = "heart_all.log"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogFilename string            `toml:"log_filename"`
	PlaylistID  string            `toml:"playlist_id"`
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the tokens persisted
// after a completed authorization flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	Expiry       string `toml:"expiry,omitempty"`
}

// ServerConfig contains settings for the OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if config.LogFilename == "" {
		config.LogFilename = DefaultLogFilename
	}

	return &config, nil
}

// SaveConfig writes the configuration back to the specified path, preserving
// credentials and tokens across runs.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration can drive a full run. The playlist
// ID and client credentials must be present before any network call is made.
func (c *Config) Validate() error {
	if c.PlaylistID == "" {
		return fmt.Errorf("%w: playlist_id is required", ErrInvalidConfig)
	}
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	return nil
}

// LoadDotenv overlays Spotify credentials from a .env file and the process
// environment onto the config. Environment values win over the config file,
// matching how the upstream tools source SPOTIFY_* variables.
func (c *Config) LoadDotenv(path string) {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
}

// Map converts the Spotify credentials to the map form consumed by the client constructor.
func (s *SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token reconstructs the persisted [oauth2.Token], or nil when no
// authorization has completed yet.
func (s *SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
	if s.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339, s.Expiry); err == nil {
			token.Expiry = expiry
		}
	}
	return token
}

// Update stores a freshly issued [oauth2.Token] on the config for persistence.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: no access token to store", ErrAuthFailed)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		s.Expiry = token.Expiry.Format(time.RFC3339)
	}
	return nil
}
