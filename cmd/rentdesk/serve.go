package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/rentdesk"
	rdhttp "github.com/aretw0/rentdesk/pkg/adapters/http"
	"github.com/aretw0/rentdesk/pkg/observability"
	"github.com/aretw0/rentdesk/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves wizard sessions as a JSON API with a server-sent event stream per
session. Prometheus metrics are exposed on --metrics when set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg, logger, rentdesk.WithLifecycleHooks(metrics.Hooks()))
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := session.NewManager(session.WithIdleTTL(cfg.SessionIdleTTL), session.WithLogger(logger))
		go sessions.Run(ctx, time.Minute)

		api, err := rdhttp.New(ctx, a.engine, rdhttp.WithLogger(logger), rdhttp.WithSessionManager(sessions))
		if err != nil {
			return err
		}
		defer api.Close()

		servers := []*http.Server{{Addr: cfg.ListenAddr, Handler: api, ReadHeaderTimeout: 10 * time.Second}}
		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		}

		serverErrors := make(chan error, len(servers))
		for _, srv := range servers {
			go func(srv *http.Server) {
				logger.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- fmt.Errorf("%s: %w", srv.Addr, err)
				}
			}(srv)
		}

		select {
		case err := <-serverErrors:
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				_ = srv.Close()
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address of the API (default :8080)")
	serveCmd.Flags().String("metrics", "", "Listen address of /metrics (disabled when empty)")
}
