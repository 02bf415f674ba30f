package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/temerold/heart-all/internal/authflow"
	"github.com/temerold/heart-all/internal/shared"
	"github.com/temerold/heart-all/internal/ui"
	"github.com/urfave/cli/v3"
)

// Auth runs only the authorization step of the pipeline and persists the
// resulting tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	if err := r.initService(); err != nil {
		return err
	}

	if err := r.ensureAuthenticated(ctx, configPath); err != nil {
		return err
	}

	r.writePlainln("%s", ui.OK("✓ Authorization successful"))
	r.writePlain("You can now run: heartall\n")
	return nil
}

// Init writes a starter config file at the configured path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Wrote %s", configPath)))
	r.writePlain("%s\n", ui.Help("Fill in playlist_id and your Spotify application credentials, then run: heartall auth"))
	return nil
}

// ensureAuthenticated installs persisted tokens when present, otherwise runs
// the interactive authorization flow, then verifies the session by fetching
// the user profile.
func (r *Runner) ensureAuthenticated(ctx context.Context, configPath string) error {
	if token := r.config.Credentials.Spotify.Token(); token != nil {
		if err := r.svc.Authenticate(ctx, token); err != nil {
			return err
		}
	} else if err := r.reauthorize(ctx, configPath); err != nil {
		return err
	}

	user, err := r.svc.CurrentUser(ctx)
	if err != nil {
		// Stored tokens can be stale or revoked; one fresh authorization
		// before giving up.
		if !errors.Is(err, shared.ErrTokenExpired) && !errors.Is(err, shared.ErrAuthFailed) {
			return fmt.Errorf("failed to verify session: %w", err)
		}
		if err := r.reauthorize(ctx, configPath); err != nil {
			return err
		}
		if user, err = r.svc.CurrentUser(ctx); err != nil {
			return fmt.Errorf("failed to verify session after reauthorization: %w", err)
		}
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.logger.Infof("authenticated with Spotify as %s", name)
	return nil
}

// reauthorize runs the authorization flow and persists the issued tokens
// back into the config file.
func (r *Runner) reauthorize(ctx context.Context, configPath string) error {
	flow := r.flow
	if flow == nil {
		flow = &authflow.Browser{
			Config: r.svc.OAuthConfig(),
			Addr:   fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port),
			Logger: r.logger,
			Output: r.output,
		}
	}

	r.writePlain("→ Waiting for Spotify authorization...\n")

	token, err := flow.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := r.svc.Authenticate(ctx, token); err != nil {
		return err
	}

	return r.persistToken(configPath)
}

// persistToken stores the current (possibly refreshed) token in the config
// file so the next run skips the interactive flow.
func (r *Runner) persistToken(configPath string) error {
	token, err := r.svc.Token()
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return err
	}

	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.logger.Infof("tokens saved to %s", configPath)
	return nil
}
