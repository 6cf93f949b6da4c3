package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tmdecker/playlist-manager/internal/models"
	"github.com/tmdecker/playlist-manager/internal/repositories"
	"github.com/tmdecker/playlist-manager/internal/services"
	"github.com/tmdecker/playlist-manager/internal/shared"
	"github.com/tmdecker/playlist-manager/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	limiter    *services.RateLimiter
	engine     *tasks.Engine
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	Limiter    *services.RateLimiter
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var engine *tasks.Engine
	if opts.Spotify != nil {
		engine = tasks.NewEngine(opts.Spotify, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		limiter:    opts.Limiter,
		engine:     engine,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, dedupCommand, sortCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSpotify ensures the Spotify service exists and carries the stored token.
func (r *Runner) requireSpotify(ctx context.Context) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials not configured in %s, run 'plm setup' first",
			shared.ErrServiceUnavailable, r.configPath)
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: run 'plm auth' first", shared.ErrNotAuthenticated)
	}

	return r.spotify.Authenticate(ctx, token)
}

// wrapAPIError attaches a user-facing message derived from the error category.
func (r *Runner) wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	category := services.Classify(err)
	return fmt.Errorf("%w: %s", err, services.UserMessage(category))
}

// openDatabase opens the configured SQLite database and ensures migrations have run.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// recordRun persists a run summary to the history database. Failures are
// logged and never fail the command; the playlist mutation already happened.
func (r *Runner) recordRun(run *models.Run) {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("failed to open run history database", "error", err)
		return
	}
	defer db.Close()

	if err := repositories.NewRunRepository(db).Create(run); err != nil {
		r.logger.Warn("failed to record run", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
