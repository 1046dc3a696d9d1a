package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/trysourcetool/sourcetool"
	"github.com/trysourcetool/sourcetool/pkg/adapters/script"
	"github.com/trysourcetool/sourcetool/pkg/observability"
)

var hostCmd = &cobra.Command{
	Use:   "host [pages-dir]",
	Short: "Serve JavaScript pages to a relay",
	Long: `Loads the page scripts of a directory (listed by pages.yaml, or every *.js
file) and connects to the relay, reconnecting whenever the connection drops.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Host.PagesDir = args[0]
		}
		if cmd.Flags().Changed("endpoint") {
			cfg.Host.Endpoint, _ = cmd.Flags().GetString("endpoint")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Host.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		logger := cfg.Logger()

		pages, err := script.LoadDir(cfg.Host.PagesDir, script.WithLogger(logger))
		if err != nil {
			return err
		}

		store, sessionOpts, closer, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		metrics := observability.NewMetrics()
		st := sourcetool.New(
			sourcetool.WithAPIKey(cfg.Host.APIKey),
			sourcetool.WithLogger(logger),
			sourcetool.WithLifecycleHooks(metrics.HostHooks()),
			sourcetool.WithStore(store, sessionOpts...),
			sourcetool.WithBackoff(sourcetool.DefaultMinBackoff, cfg.Host.ReconnectTimeout),
			sourcetool.WithTransport(transport(cfg.Relay)),
		)
		for _, p := range pages {
			if err := st.Register(p.Page, p.Program.Script()); err != nil {
				return err
			}
			logger.Info("Loaded page", "name", p.Page.Name, "route", p.Page.Route, "script", p.Program.Name())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			r := chi.NewRouter()
			r.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: r}
			go func() {
				logger.Info("Serving host metrics", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Metrics server failed", "err", err)
				}
			}()
			defer srv.Shutdown(context.Background())
		}

		logger.Info("Connecting to relay", "endpoint", cfg.Host.Endpoint, "pages", len(pages))
		return st.Listen(ctx, cfg.Host.Endpoint)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
	hostCmd.Flags().String("endpoint", "", "Relay websocket endpoint (overrides host.endpoint)")
	hostCmd.Flags().String("api-key", "", "API key presented to the relay (overrides host.api_key)")
	hostCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
}
