package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SWAI-Ltd/onionmesh/internal/cli"
	"github.com/SWAI-Ltd/onionmesh/internal/instrument"
	"github.com/SWAI-Ltd/onionmesh/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags cli.Flags
	cmd := &cobra.Command{
		Use:          "registry",
		Short:        "Run the in-memory node registry relays publish their keys to",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load()
			if err != nil {
				return err
			}
			instrument.Init(cfg.Metrics.Address)

			ctx, cancel := cli.SignalContext()
			defer cancel()

			srv, err := registry.Listen(ctx, cfg.Ports().Registry(), registry.New(), slog.Default())
			if err != nil {
				slog.Error("failed to start registry", "err", err)
				return err
			}
			defer srv.Close()

			<-ctx.Done()
			slog.Info("registry shutting down")
			return nil
		},
	}
	flags.Register(cmd)
	return cmd
}
