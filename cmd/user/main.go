package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SWAI-Ltd/onionmesh/client"
	"github.com/SWAI-Ltd/onionmesh/internal/cli"
	"github.com/SWAI-Ltd/onionmesh/internal/instrument"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flags  cli.Flags
		userID int
	)
	cmd := &cobra.Command{
		Use:          "user",
		Short:        "Run a user endpoint that sends and receives onion-routed messages",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load()
			if err != nil {
				return err
			}
			instrument.Init(cfg.Metrics.Address)

			ctx, cancel := cli.SignalContext()
			defer cancel()

			c, err := client.New(ctx, client.Config{
				UserID:        userID,
				Ports:         cfg.Ports(),
				CircuitLength: cfg.Circuit.Length,
				Logger:        slog.Default(),
			})
			if err != nil {
				slog.Error("failed to start user", "err", err)
				return err
			}
			defer c.Close()
			slog.Info("user started", "addr", c.Addr(), "id", userID)

			for {
				select {
				case <-ctx.Done():
					return nil
				case m, ok := <-c.Messages():
					if !ok {
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", m.Payload)
				}
			}
		},
	}
	flags.Register(cmd)
	cmd.Flags().IntVar(&userID, "id", 0, "user id; listens on BaseUserPort+id")
	return cmd
}
