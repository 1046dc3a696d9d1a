package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	httpAdapter "github.com/trysourcetool/sourcetool/pkg/adapters/http"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/observability"
	"github.com/trysourcetool/sourcetool/pkg/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Long:  `Starts the relay that routes messages between Hosts and Clients over websockets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Relay.Addr, _ = cmd.Flags().GetString("addr")
		}
		logger := cfg.Logger()

		metrics := observability.NewMetrics()
		opts := []relay.Option{
			relay.WithLogger(logger),
			relay.WithHooks(metrics.RelayHooks()),
			relay.WithAPIKeys(cfg.Relay.APIKeys...),
			relay.WithOrphanGrace(cfg.Relay.OrphanGrace),
		}
		if cfg.Relay.HandshakeTimeout > 0 {
			opts = append(opts, relay.WithHandshakeTimeout(cfg.Relay.HandshakeTimeout))
		}
		if cfg.Relay.WriteTimeout > 0 {
			opts = append(opts, relay.WithWriteTimeout(cfg.Relay.WriteTimeout))
		}
		if cfg.Relay.OutboundBuffer > 0 {
			opts = append(opts, relay.WithOutboundBuffer(cfg.Relay.OutboundBuffer))
		}
		if cfg.Relay.RateLimit > 0 {
			opts = append(opts, relay.WithRateLimit(rate.Limit(cfg.Relay.RateLimit), cfg.Relay.RateBurst))
		}
		if len(cfg.Relay.APIKeys) == 0 {
			logger.Warn("No relay.api_keys configured, any non-empty key is accepted")
		}
		rel := relay.NewServer(opts...)

		handler := httpAdapter.NewHandler(rel,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithUpgrader(websocket.NewUpgrader(transport(cfg.Relay), nil)),
		)
		srv := &http.Server{
			Addr:              cfg.Relay.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.Relay.HandshakeTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting relay", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case sig := <-shutdown:
			logger.Info("Shutting down relay", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Relay.ShutdownTimeout)
			defer cancel()

			// Hijacked websocket connections are not tracked by Shutdown.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", cfg.Relay.ShutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Failed to close server", "err", err)
				}
			}
			logger.Info("Relay stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides relay.addr)")
}
