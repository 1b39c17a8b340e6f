// Command migrate manages the structstore database schema. It applies,
// rolls back, or inspects the golang-migrate migrations in the configured
// migrations directory, using the same configuration sources as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/structstore/internal/config"
	"github.com/helixir/structstore/internal/database"
	"github.com/helixir/structstore/internal/observability"
)

const connectTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		up      = flag.Bool("up", false, "apply all pending migrations")
		down    = flag.Bool("down", false, "roll back every migration")
		steps   = flag.Int("steps", 0, "apply N migrations up (N > 0) or down (N < 0)")
		version = flag.Bool("version", false, "print the current schema version")
		force   = flag.Int("force", -1, "mark the schema as being at this version without running anything")
		path    = flag.String("path", "", "migrations directory (defaults to the configured path)")
	)
	flag.Parse()

	if err := checkSingleAction(*up, *down, *steps, *version, *force); err != nil {
		flag.Usage()
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output reads better for a one-shot tool than the server's JSON.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if *path != "" {
		migrationDir = *path
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch {
	case *up:
		logger.Info().Str("path", migrationDir).Msg("applying pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}

	case *down:
		logger.Warn().Msg("rolling back every migration")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}

	case *steps != 0:
		logger.Info().Int("steps", *steps).Msg("applying migration steps")
		if err := migrator.Steps(*steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}

	case *force >= 0:
		logger.Warn().Int("version", *force).Msg("forcing schema version")
		if err := migrator.Force(*force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	reportVersion(migrator, logger)
	return nil
}

// checkSingleAction enforces that exactly one action flag was given.
func checkSingleAction(up, down bool, steps int, version bool, force int) error {
	actions := 0
	for _, set := range []bool{up, down, steps != 0, version, force >= 0} {
		if set {
			actions++
		}
	}
	switch {
	case actions == 0:
		return fmt.Errorf("specify one of -up, -down, -steps N, -version, -force V")
	case actions > 1:
		return fmt.Errorf("only one action may be given")
	}
	return nil
}

// reportVersion logs the schema version after the action. A fresh database
// with no applied migrations has no version yet; that is not a failure.
func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("schema version unavailable")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("schema version")
}
