package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
	"github.com/KaramelBytes/ags-analyzer/internal/server"
	"github.com/KaramelBytes/ags-analyzer/internal/session"
)

var (
	srvAddr     string
	srvProvider string
	srvModel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.SentryDSN != "" {
			if err := sentry.Init(sentry.ClientOptions{
				Dsn:              cfg.SentryDSN,
				Environment:      cfg.Environment,
				Release:          "ags@" + Version,
				TracesSampleRate: 0.1,
			}); err != nil {
				return fmt.Errorf("init sentry: %w", err)
			}
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry enabled", "environment", cfg.Environment)
		}
		metrics.BuildInfo.WithLabelValues(Version).Set(1)

		ttl := cfg.SessionTTL()
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		store, err := session.NewStore(session.StoreConfig{Logger: log, TTL: ttl})
		if err != nil {
			return err
		}
		store.Start(ctx)

		srvCfg := server.Config{
			Logger:         log,
			Store:          store,
			CORSOrigins:    cfg.CORSOrigins,
			MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
			AskBurst:       3,
		}
		if cfg.AskRatePerMinute > 0 {
			srvCfg.AskRate = rate.Every(time.Minute / time.Duration(cfg.AskRatePerMinute))
		}
		runtime, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: srvProvider})
		if err != nil {
			log.Warn("question answering disabled", "provider", provider, "error", err)
		} else {
			model := selectModel(cfg, provider, srvModel)
			srvCfg.Answerer = newChain(runtime, provider, model, 0, 0)
			log.Info("question answering enabled", "provider", provider, "model", model)
		}

		srv, err := server.New(srvCfg)
		if err != nil {
			return err
		}

		addr := srvAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("listening", "addr", addr, "version", Version)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "LLM provider for /ask (default from config)")
	serveCmd.Flags().StringVar(&srvModel, "model", "", "model for /ask (default from config or provider)")
}
