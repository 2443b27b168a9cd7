package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/cadence/internal/auth"
	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// oauthConfigFrom builds the OAuth2 configuration for the Spotify endpoints.
func oauthConfigFrom(config *shared.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.Credentials.Spotify.ClientID,
		ClientSecret: config.Credentials.Spotify.ClientSecret,
		RedirectURL:  config.Credentials.Spotify.RedirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
			"user-library-read",
			"user-library-modify",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  services.AuthURL(),
			TokenURL: services.TokenURL(),
		},
	}
}

func (r *Runner) oauthConfig() *oauth2.Config {
	return oauthConfigFrom(r.config)
}

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		logger.Fatalf("failed to run migrations: %v", err)
	}

	store := repositories.NewCredentialRepository(db)

	authority, err := auth.NewAuthority(auth.AuthorityOpts{
		Config: oauthConfigFrom(config),
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("failed to create token authority: %v", err)
	}

	ctx := context.Background()
	if err := authority.Hydrate(ctx); err != nil {
		logger.Warn("failed to load stored credential", "error", err)
	}

	timeout := 30 * time.Second
	if config.Client.TimeoutSeconds > 0 {
		timeout = time.Duration(config.Client.TimeoutSeconds) * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	executor, err := services.NewExecutor(services.ExecutorOpts{
		HTTPClient: httpClient,
		Authority:  authority,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("failed to create request executor: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Authority:  authority,
		Executor:   executor,
		Spotify:    services.NewSpotifyClient(executor),
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "cadence",
		Usage:    "Manage your Spotify library from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
