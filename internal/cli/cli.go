// Package cli holds the flag and config plumbing shared by the onionmesh binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SWAI-Ltd/onionmesh/internal/config"
)

// Flags are the persistent flags every binary accepts.
type Flags struct {
	ConfigFile string
	Host       string
	LogLevel   string
}

// Register adds the shared flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "TOML config file")
	cmd.PersistentFlags().StringVar(&f.Host, "host", "", "host every endpoint listens on (overrides config)")
	cmd.PersistentFlags().StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

// Load reads the config file if one was given, applies flag overrides and installs the logger
// as the slog default.
func (f *Flags) Load() (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadFile(f.ConfigFile); err != nil {
			return nil, err
		}
	}
	if f.Host != "" {
		cfg.Network.Host = f.Host
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := cfg.Logging.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx, cancel
}
