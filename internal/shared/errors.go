package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrTokenExpired = fmt.Errorf("access token expired")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrRateLimited      = fmt.Errorf("rate limited by remote service")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Save pipeline errors
	ErrPartialSave = fmt.Errorf("some save batches failed")
)
