package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/slimwire/slimwire/bridge"
	"github.com/slimwire/slimwire/config"
	"github.com/slimwire/slimwire/engine"
	"github.com/slimwire/slimwire/metrics"
	"github.com/slimwire/slimwire/player"
	"github.com/slimwire/slimwire/resolver"
)

func newRunCmd() *cobra.Command {
	var bridgeAddr string
	var noBridge bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the server and run as a player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireServer(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			idPath, err := config.IdentityPath()
			if err != nil {
				return err
			}
			identity, err := config.LoadOrCreateIdentity(idPath)
			if err != nil {
				return err
			}
			mac, err := identity.HardwareAddr()
			if err != nil {
				return err
			}
			uid, err := identity.UUIDBytes()
			if err != nil {
				return err
			}

			ctrl := newControlClient()
			res := resolver.New(cfg.Server, cfg.WebPort, ctrl)
			p := player.NewExecPlayer(cfg.PlayerCommand, cfg.PlayerArgs)

			registry := prometheus.NewRegistry()
			mc := metrics.New(registry)

			eng := engine.New(engine.Config{
				Host:     cfg.Server,
				SlimPort: cfg.SlimPort,
				MAC:      mac,
				UUID:     uid,
				PlayerID: identity.MAC,
				Model:    cfg.PlayerName,
			}, p, ctrl, res, mc)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := cfg.BridgeAddr
			if bridgeAddr != "" {
				addr = bridgeAddr
			}
			if noBridge {
				addr = ""
			}

			if addr != "" {
				b := bridge.New(bridge.Options{
					Addr:     addr,
					PlayerID: identity.MAC,
					Engine:   eng,
					Control:  ctrl,
					Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
				})
				go func() {
					if err := b.Serve(ctx); err != nil {
						fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
					}
				}()
				go func() {
					for ev := range eng.Events() {
						b.Publish(ev)
					}
				}()
			}

			fmt.Printf("Connecting to %s:%d as %q (%s)...\n", cfg.Server, cfg.SlimPort, cfg.PlayerName, identity.MAC)
			if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			// Make sure the child player does not outlive us.
			_ = p.Stop()
			fmt.Println("Stopped.")
			return nil
		},
	}

	cmd.Flags().StringVar(&bridgeAddr, "bridge-addr", "", "listen address for the local control surface (overrides config)")
	cmd.Flags().BoolVar(&noBridge, "no-bridge", false, "disable the local control surface")
	return cmd
}
