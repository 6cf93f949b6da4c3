package main

import (
	"context"
	"os"
	"time"

	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/tmdecker/playlist-manager/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	limiter := services.NewRateLimiter(services.RateLimiterOpts{
		BaseDelay:  time.Duration(config.RateLimit.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:   time.Duration(config.RateLimit.MaxDelaySeconds * float64(time.Second)),
		MaxRetries: config.RateLimit.MaxRetries,
		Jitter:     config.RateLimit.Jitter,
		Logger:     logger,
	})

	var spotifyService *services.SpotifyService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), limiter); err == nil {
			spotifyService = svc
		} else {
			logger.Warn("failed to initialize Spotify service", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    spotifyService,
		Limiter:    limiter,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "plm",
		Usage:    "Remove duplicates from and reorder Spotify playlists",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
