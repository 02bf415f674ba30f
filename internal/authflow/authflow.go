// Package authflow implements the out-of-band user approval step of the
// OAuth2 authorization code flow.
//
// [Browser] runs the interactive flow: it starts a localhost callback server,
// opens the system browser to the authorization URL, and waits for the
// redirect carrying the authorization code. [Static] injects a pre-issued
// token for headless use in tests.
package authflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/temerold/heart-all/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds how long [Browser.Authorize] waits for the user to
// approve access.
const DefaultTimeout = 2 * time.Minute

// Flow produces an authorized token via some user-approval step.
type Flow interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// Static is a headless [Flow] that returns a pre-issued token.
type Static struct {
	Tok *oauth2.Token
}

func (s Static) Authorize(context.Context) (*oauth2.Token, error) {
	if s.Tok == nil {
		return nil, fmt.Errorf("%w: no token configured", shared.ErrAuthFailed)
	}
	return s.Tok, nil
}

// Browser is the interactive [Flow]. It serves the OAuth2 callback on Addr
// and exchanges the received authorization code for a token.
type Browser struct {
	Config  *oauth2.Config
	Addr    string        // listen address for the callback server, e.g. 127.0.0.1:3000
	Timeout time.Duration // defaults to DefaultTimeout
	Logger  *log.Logger
	Output  io.Writer          // terminal output for the fallback URL prompt
	OpenURL func(string) error // defaults to shared.OpenBrowser
}

// Authorize runs the flow end to end: callback server up, browser open,
// wait for the redirect, exchange the code, server down.
func (b *Browser) Authorize(ctx context.Context) (*oauth2.Token, error) {
	openURL := b.OpenURL
	if openURL == nil {
		openURL = shared.OpenBrowser
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	state := shared.GenerateState()
	authURL := b.Config.AuthCodeURL(state)
	handler := newCallbackHandler(b.Config, state)

	mux := http.NewServeMux()
	mux.Handle(b.callbackPath(), handler)
	srv := &http.Server{Addr: b.Addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		if b.Logger != nil {
			b.Logger.Infof("listening for authorization callback at %s", b.Addr)
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	if err := openURL(authURL); err != nil {
		if b.Logger != nil {
			b.Logger.Warnf("failed to open browser automatically: %v", err)
		}
		if b.Output != nil {
			fmt.Fprintf(b.Output, "Please open this URL in your browser:\n%s\n", authURL)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result callbackResult
	select {
	case result = <-handler.result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		b.shutdown(srv)
		return nil, fmt.Errorf("%w: authorization not completed within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		b.shutdown(srv)
		return nil, ctx.Err()
	}

	b.shutdown(srv)

	if result.err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.err)
	}
	return result.token, nil
}

// callbackPath derives the callback route from the configured redirect URI.
func (b *Browser) callbackPath() string {
	if u, err := url.Parse(b.Config.RedirectURL); err == nil && u.Path != "" {
		return u.Path
	}
	return "/callback"
}

func (b *Browser) shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && b.Logger != nil {
		b.Logger.Warnf("error shutting down callback server: %v", err)
	}
}
