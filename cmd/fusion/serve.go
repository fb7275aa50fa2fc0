package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fusion/pkg/devtools"
	"github.com/vango-dev/fusion/pkg/metrics"
	"github.com/vango-dev/fusion/pkg/store"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the configured store with devtools and metrics",
		Long: `Host a store built from the config file.

The store hydrates from the configured storage driver and is
published on the devtools bridge, so "fusion inspect" and
"fusion snapshot" can read the persisted record as the
application sees it. Prometheus metrics are served on /metrics.

Examples:
  fusion serve
  fusion serve --addr=:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Devtools.Addr = addr
			}
			return runServe(cfg.Devtools.Addr, func(ctx context.Context) (*store.Store, func() error, error) {
				adapter, closer, err := openAdapter(ctx, cfg)
				if err != nil {
					return nil, closer, err
				}
				opts := append(cfg.StoreOptions(), store.WithDevtools())
				if adapter != nil {
					opts = append(opts, store.WithAdapter(adapter))
				}
				return serveStore(opts, closer)
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	return cmd
}

var serveRegistry = prometheus.NewRegistry()

func serveStore(opts []store.Option, closer func() error) (*store.Store, func() error, error) {
	m := metrics.New(metrics.WithRegistry(serveRegistry))
	opts = append(opts,
		store.WithMetrics(m),
		store.WithLogger(slog.Default()),
	)
	s, err := store.New(opts...)
	if err != nil {
		return nil, closer, err
	}
	return s, closer, nil
}

type storeFactory func(ctx context.Context) (*store.Store, func() error, error)

func runServe(addr string, open storeFactory) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closer, err := open(ctx)
	defer closer()
	if err != nil {
		return err
	}

	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = s.WaitHydrated(hctx)
	cancel()
	if err != nil {
		s.Close(context.Background())
		return fmt.Errorf("waiting for hydration: %w", err)
	}

	bridge := devtools.NewBridge(devtools.WithLogger(slog.Default()))
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(serveRegistry, promhttp.HandlerOpts{}))
	r.Mount("/", bridge)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner()
	success("Serving store %s", s.Name())
	info("Devtools:  http://%s/stores/%s", displayAddr(addr), s.Name())
	info("Metrics:   http://%s/metrics", displayAddr(addr))
	info("Keys:      %d", len(s.Keys()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		fmt.Println()
		info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bridge.Close()
	srv.Shutdown(shutdownCtx)
	if cerr := s.Close(shutdownCtx); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
