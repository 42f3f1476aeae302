package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"noet_automation/infrastructure/transport"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the controller and answer commands until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	backoff := transport.FixedBackoff(a.cfg.Transport.ReconnectDelay)

	var connectors []transport.Connector
	if native := a.cfg.Transport.Native; native.Enabled {
		connectors = append(connectors, transport.NewNativeConnector(native.HostName, native.ManifestDirs, a.logger))
	}
	if socket := a.cfg.Transport.Socket; socket.Enabled {
		connectors = append(connectors, transport.NewSocketConnector(socket.URL))
	}
	if len(connectors) == 0 {
		return errors.New("no transport enabled; enable transport.native or transport.socket")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range connectors {
		sup := transport.NewSupervisor(c, a.dispatcher, backoff, a.logger)
		g.Go(func() error {
			return sup.Run(ctx)
		})
	}

	a.logger.WithField("channels", len(connectors)).Info("Serving")
	err := g.Wait()
	a.logger.Info("Shutting down")
	return err
}
