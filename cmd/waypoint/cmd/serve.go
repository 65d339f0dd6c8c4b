package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/presentation/tui"
	httpadapter "github.com/aretw0/waypoint/pkg/adapters/http"
	mcpadapter "github.com/aretw0/waypoint/pkg/adapters/mcp"
	"github.com/aretw0/waypoint/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow API over HTTP",
	Long: `Starts the HTTP API on the configured store. The same listener exposes
the MCP streamable HTTP endpoint at /mcp, Prometheus metrics at /metrics and a
server-sent event stream of edge and run events at /events.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().String("store", "memory", "store backend (memory, file, sqlite, mysql, redis)")
	serveCmd.Flags().String("store-path", ".waypoint/data", "directory or database file for the file and sqlite stores")
	serveCmd.Flags().Bool("no-banner", false, "do not print the startup banner")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.backend", serveCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("store.path", serveCmd.Flags().Lookup("store-path"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if noBanner, _ := cmd.Flags().GetBool("no-banner"); !noBanner {
		tui.PrintBanner(cmd.ErrOrStderr())
	}

	handler, closeFn, err := buildHandler(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := &http.Server{
		Addr:              appConfig.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr, "store", appConfig.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", appConfig.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// buildHandler wires the engine, its observers and both transports onto one mux.
func buildHandler(ctx context.Context) (http.Handler, func(), error) {
	events := httpadapter.NewStreamManager(logger)
	hooks := events.Hooks()
	apiOpts := []httpadapter.ServerOption{
		httpadapter.WithLogger(logger),
		httpadapter.WithEvents(events),
	}
	if appConfig.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hooks = hooks.Merge(observability.NewMetrics(reg).Hooks())
		apiOpts = append(apiOpts, httpadapter.WithMetrics(reg))
	}

	eng, closeFn, err := openEngine(ctx, waypoint.WithLifecycleHooks(hooks))
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpadapter.NewServer(eng, mcpadapter.WithLogger(logger)).Handler())
	mux.Handle("/", httpadapter.NewServer(eng, apiOpts...).Handler())
	return mux, closeFn, nil
}
