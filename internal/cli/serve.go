package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-venue-acoustics/internal/config"
	"github.com/teslashibe/go-venue-acoustics/internal/log"
	"github.com/teslashibe/go-venue-acoustics/pkg/store"
	"github.com/teslashibe/go-venue-acoustics/pkg/web"
)

func serveCmd() *cobra.Command {
	var state stateFlags
	var port int
	var noCatalog bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote() {
				return fmt.Errorf("--server cannot be used with serve")
			}
			sim, err := state.simulate()
			if err != nil {
				return err
			}

			var opts []web.Option
			if !noCatalog {
				catalog, err := store.OpenDefault()
				if err != nil {
					log.Warn("venue catalog unavailable", "error", err)
				} else {
					defer catalog.Close()
					opts = append(opts, web.WithCatalog(catalog))
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(port, sim, opts...)
			log.Info("serving venue",
				"venue", sim.Venue().ID(),
				"profile_ws", fmt.Sprintf("ws://localhost:%d/ws/profile", port),
				"crowd_ws", fmt.Sprintf("ws://localhost:%d/ws/crowd", port))
			return srv.Start(ctx)
		},
	}
	state.register(cmd)
	cmd.Flags().IntVar(&port, "port", config.Port(config.DefaultPort), "HTTP port (env PORT)")
	cmd.Flags().BoolVar(&noCatalog, "no-catalog", false, "Do not open the venue catalog")
	return cmd
}
