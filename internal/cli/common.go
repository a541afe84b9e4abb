package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rpggio/waitwatch/internal/app"
	"github.com/rpggio/waitwatch/internal/config"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/logging"
	"github.com/rpggio/waitwatch/internal/sqlite"
)

// openApp loads configuration, opens and migrates the database and wires the services.
func openApp() (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:    cliLogLevel(cfg.Log.Level),
		Format:   cfg.Log.Format,
		Fallback: os.Stderr,
	})
	if err != nil {
		return nil, nil, err
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	cleanup := func() {
		db.Close()
		closeLog()
	}
	if err := db.WithLogger(logger).RunMigrations(); err != nil {
		cleanup()
		return nil, nil, err
	}

	a, err := app.New(db, cfg, nil, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

// cliLogLevel keeps info logs off the terminal unless debug is asked for.
func cliLogLevel(level string) string {
	if level == "debug" {
		return level
	}
	return "warn"
}

func categoryColor(c estimate.Category) *color.Color {
	switch c {
	case estimate.CategoryLow:
		return color.New(color.FgGreen)
	case estimate.CategoryModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatMinutes(seconds float64) string {
	return fmt.Sprintf("%.1f min", seconds/60)
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return t, nil
}
