package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SWAI-Ltd/onionmesh/internal/cli"
	"github.com/SWAI-Ltd/onionmesh/internal/instrument"
	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
	"github.com/SWAI-Ltd/onionmesh/internal/registry"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flags  cli.Flags
		nodeID int
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run an onion relay that peels one layer per message",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load()
			if err != nil {
				return err
			}
			ports := cfg.Ports()
			instrument.Init(cfg.Metrics.Address)

			ctx, cancel := cli.SignalContext()
			defer cancel()

			r, err := mesh.NewRelay(ctx, mesh.RelayConfig{
				NodeID: nodeID,
				Sender: transport.NewSender(ports.Host),
			})
			if err != nil {
				slog.Error("failed to create relay", "err", err)
				return err
			}
			var opts []mesh.RelayServerOption
			if cfg.Discovery.Enable {
				opts = append(opts, mesh.WithDiscovery())
			}
			srv, err := mesh.ListenRelay(ctx, ports.Listen(ports.RelayAddress(nodeID)), r, opts...)
			if err != nil {
				slog.Error("failed to start relay", "err", err)
				return err
			}
			defer srv.Close()
			// Best-effort; the relay keeps forwarding even if the registry is down.
			_ = r.Register(ctx, registry.NewClient(ports.Registry()))

			<-ctx.Done()
			slog.Info("relay shutting down", "node", nodeID)
			return nil
		},
	}
	flags.Register(cmd)
	cmd.Flags().IntVar(&nodeID, "id", 0, "relay node id; listens on BaseRelayPort+id")
	return cmd
}
