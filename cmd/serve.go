package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/refer/server"
	"github.com/lehigh-university-libraries/refer/watch"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve disseminations over HTTP",
	Long: `Serve the configured crosswalks over HTTP.

Routes:
  GET  /crosswalks             list crosswalks
  GET  /items/:id/:crosswalk   disseminate one record
  POST /export/:crosswalk      disseminate {"ids": [...]}

With --watch, templates are reloaded when their files change.

Examples:
  refer serve
  refer serve --addr :9090 --watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().AddFlagSet(storeFlags)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload templates when they change")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Server.Addr
	if cmd.Flags().Changed("addr") {
		addr = serveAddr
	}
	watching := a.cfg.Server.Watch || serveWatch

	g, ctx := errgroup.WithContext(ctx)
	if watching {
		w, err := watch.New(a.registry, watch.WithDelay(a.cfg.Server.Debounce))
		if err != nil {
			return fmt.Errorf("starting template watcher: %w", err)
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	srv := server.New(a.registry, a.store, slog.Default())
	g.Go(func() error { return srv.Run(ctx, addr) })
	return g.Wait()
}
