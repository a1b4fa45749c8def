// Package common provides shared dependency construction for commands.
package common

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regradar/internal/config"
	"github.com/jonesrussell/regradar/internal/database"
	"github.com/jonesrussell/regradar/internal/logger"
)

// Deps holds the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	DB     *sqlx.DB
}

// Build loads configuration, creates the logger, and connects the
// database.
func Build(cfgFile string, debug bool) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logger.Level
	if debug {
		level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:       level,
		Encoding:    cfg.Logger.Encoding,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	deps := &Deps{
		Config: cfg,
		Logger: log,
		DB:     db,
	}
	if validateErr := deps.validate(); validateErr != nil {
		return nil, validateErr
	}

	return deps, nil
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Warn("failed to close database", "error", err)
		}
	}
}

func (d *Deps) validate() error {
	if d.Logger == nil {
		return errors.New("logger is required")
	}
	if d.Config == nil {
		return errors.New("config is required")
	}
	return nil
}
