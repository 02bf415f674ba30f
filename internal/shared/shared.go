// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that tees every entry to stderr and an
// append-only log file at path. The caller owns closing the returned file.
func NewFileLogger(path string) (*log.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return NewLogger(io.MultiWriter(os.Stderr, f)), f, nil
}

// GenerateState generates a random state token for the OAuth2 authorization
// request, as CSRF protection on the callback.
func GenerateState() string {
	return uuid.New().String()
}
