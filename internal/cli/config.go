package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config is the environment layer under the command-line flags.
// A flag set on the command line always wins.
type Config struct {
	LogLevel   string `env:"TXBATCH_LOG_LEVEL" envDefault:"warn"`
	CommitMode string `env:"TXBATCH_COMMIT_MODE"`
	Database   string `env:"TXBATCH_DB"`
	Format     string `env:"TXBATCH_FORMAT"`
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// loadConfigFrom reads Config from vars instead of the process environment.
func loadConfigFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// logLevel resolves the configured level; --verbose forces debug.
func (c Config) logLevel(verbose bool) (slog.Level, error) {
	if verbose {
		return slog.LevelDebug, nil
	}
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("TXBATCH_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// newLogger builds the engine logger writing text records to w.
func newLogger(opts *RootOptions, w io.Writer) (*slog.Logger, error) {
	level, err := opts.Config.logLevel(opts.Verbose)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// pick returns flag when set, otherwise fallback.
func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
