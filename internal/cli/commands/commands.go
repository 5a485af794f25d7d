// Package commands implements the statemapper subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shashir/covid-school-data/internal/cli/config"
	"github.com/shashir/covid-school-data/internal/store"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded config in a context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		Mapping:      config.DefaultMapping,
		DataDir:      config.DefaultDataDir,
		StateDB:      config.DefaultStateDB,
		Jobs:         config.DefaultJobs,
		OutputFormat: config.DefaultOutput,
	}
}

// WithLogger stores the logger in a context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openStore opens (and initializes) the run-state database at path.
func openStore(path string) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	st := store.NewSQLiteStore()
	if err := st.Open(path); err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
