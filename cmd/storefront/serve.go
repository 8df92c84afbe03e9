package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/commerce"
	"finitefield.org/storefront-widgets/internal/config"
	"finitefield.org/storefront-widgets/internal/i18n"
	"finitefield.org/storefront-widgets/internal/metrics"
	mw "finitefield.org/storefront-widgets/internal/middleware"
	"finitefield.org/storefront-widgets/internal/observability"
	"finitefield.org/storefront-widgets/internal/server"
	"finitefield.org/storefront-widgets/internal/view"
	"finitefield.org/storefront-widgets/internal/widget"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr, widgetsFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve widgets and cart controls over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if widgetsFile != "" {
				cfg.WidgetsFile = widgetsFile
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides STOREFRONT_ADDR and PORT)")
	cmd.Flags().StringVar(&widgetsFile, "widgets", "", "widget store file (overrides STOREFRONT_WIDGETS_FILE)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := widget.Open(cfg.WidgetsFile, logger.Named("widgets"))
	if err != nil {
		return err
	}
	bundle, err := i18n.LoadEmbedded(cfg.DefaultLocale)
	if err != nil {
		return err
	}
	renderer, err := view.New()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Store:       store,
		Bundle:      bundle,
		Renderer:    renderer,
		Sessions:    mw.NewSessions([]byte(cfg.SessionSigningKey), cfg.SecureCookies),
		Metrics:     metrics.New(),
		Logger:      logger,
		API:         cartAPI(cfg, logger),
		RevertDelay: cfg.RevertDelay,
		IdleTTL:     cfg.ControllerIdleTTL,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Dev {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Warn("widget store watcher stopped", zap.Error(err))
			}
		}()
	}
	go srv.Run(ctx)

	httpSrv := srv.HTTPServer(cfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening",
			zap.String("addr", cfg.Addr),
			zap.Bool("dev", cfg.Dev),
			zap.Int("widgets", len(store.List())),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// cartAPI picks the platform client, the preview cart in dev, or nothing.
// A missing platform must reach the controller as an untyped nil.
func cartAPI(cfg *config.Config, logger *zap.Logger) cart.API {
	if client := commerce.NewClient(cfg.CartAPIURL, cfg.CartAPITimeout); client != nil {
		return client
	}
	if cfg.Dev {
		logger.Info("no cart platform configured; using the preview cart")
		return commerce.NewFake(cfg.PreviewLatency, logger.Named("preview-cart"))
	}
	logger.Warn("no cart platform configured; add-to-cart will fail")
	return nil
}
