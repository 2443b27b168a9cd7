package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/cadence/internal/auth"
	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/server"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the interactive OAuth2 PKCE flow.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// hands the exchanged token to the authority for persistence.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.authority == nil {
		return fmt.Errorf("%w: authority not initialized", shared.ErrMissingCredentials)
	}
	if r.config.Credentials.Spotify.ClientID == "" {
		return fmt.Errorf("%w: Spotify client_id must be set in config.toml", shared.ErrInvalidArgument)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	cred := auth.NewCredential(token)
	if err := r.authority.Update(ctx, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("You can now use: cadence playlists list\n")

	return nil
}

// AuthStatus reports the credential state and current rate-limit snapshot.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	if _, err := r.authority.Credential(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrReauthRequired) {
			r.writePlain("Authentication: ✗ Not authenticated\n")
			r.writePlain("Run: cadence auth login\n")
			return nil
		}
		return err
	}

	user, err := r.spotify.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	if user.DisplayName != "" {
		r.writePlain("Account: %s (%s)\n", user.DisplayName, user.ID)
	} else {
		r.writePlain("Account: %s\n", user.ID)
	}
	r.writePlain("%s", formatter.RateLimitStatus(r.executor.Tracker().Snapshot()))

	return nil
}

// AuthLogout clears the in-memory and persisted credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.authority.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	r.writePlain("✓ Logged out\n")
	return nil
}

// doOAuth runs the browser flow: local callback server, state + PKCE
// verifier, bounded wait for the callback result.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateID()
	verifier := oauth2.GenerateVerifier()

	oauthConfig := r.oauthConfig()
	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	oauthHandler := server.NewOAuthHandler(oauthConfig, state, verifier)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
