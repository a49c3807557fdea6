// Package commands defines the onionctl CLI.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/SWAI-Ltd/onionmesh/internal/cli"
	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
	"github.com/SWAI-Ltd/onionmesh/internal/proto"
	"github.com/SWAI-Ltd/onionmesh/internal/registry"
	"github.com/SWAI-Ltd/onionmesh/internal/transport"
)

var (
	flags   cli.Flags
	timeout time.Duration
	ports   mesh.Ports
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "onionctl",
		Short:        "Inspect and drive onionmesh relays and users",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load()
			if err != nil {
				return err
			}
			ports = cfg.Ports()
			return nil
		},
	}
	flags.Register(root)
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")

	root.AddCommand(statusCmd(), inspectCmd(), nodesCmd(), sendCmd())
	return root
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// target resolves "relay|user|registry [id]" into a dialable address.
func target(kind string, rest []string) (string, error) {
	if kind == "registry" {
		return ports.Registry(), nil
	}
	if len(rest) != 1 {
		return "", fmt.Errorf("%s needs an id", kind)
	}
	id, err := strconv.Atoi(rest[0])
	if err != nil || id < 0 {
		return "", fmt.Errorf("invalid id %q", rest[0])
	}
	switch kind {
	case "relay":
		return ports.Listen(ports.RelayAddress(id)), nil
	case "user":
		return ports.Listen(ports.UserAddress(id)), nil
	default:
		return "", fmt.Errorf("unknown endpoint kind %q (relay, user, registry)", kind)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status relay|user|registry [id]",
		Short: "Print an endpoint's liveness",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := target(args[0], args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()
			reply, err := transport.Call(ctx, addr, &proto.Frame{Type: proto.FrameTypeStatus})
			if err != nil {
				return err
			}
			if reply.Ack == nil {
				return fmt.Errorf("unexpected reply type %d", reply.Type)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Ack.Status)
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	var private bool
	cmd := &cobra.Command{
		Use:   "inspect relay|user id",
		Short: "Print what an endpoint last observed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := target(args[0], args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout()
			defer cancel()
			reply, err := transport.Call(ctx, addr, &proto.Frame{
				Type:    proto.FrameTypeInspect,
				Inspect: &proto.InspectFrame{IncludePrivateKey: private},
			})
			if err != nil {
				return err
			}
			if reply.State == nil {
				return fmt.Errorf("unexpected reply type %d", reply.Type)
			}
			return printJSON(cmd.OutOrStdout(), reply.State)
		},
	}
	cmd.Flags().BoolVar(&private, "private-key", false, "include the relay's private key (debug)")
	return cmd
}

func nodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the relays registered with the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout()
			defer cancel()
			nodes, err := registry.NewClient(ports.Registry()).Nodes(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), nodes)
		},
	}
}

func sendCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "send message",
		Short: "Ask user --from to send message to user --to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout()
			defer cancel()
			_, err := transport.Call(ctx, ports.Listen(ports.UserAddress(from)), &proto.Frame{
				Type: proto.FrameTypeSend,
				Send: &proto.SendFrame{Message: args[0], DestinationUserID: to},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "success")
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "sending user id")
	cmd.Flags().IntVar(&to, "to", 1, "destination user id")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
