// Package server exposes the widgets and their cart controls over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/i18n"
	"finitefield.org/storefront-widgets/internal/metrics"
	mw "finitefield.org/storefront-widgets/internal/middleware"
	"finitefield.org/storefront-widgets/internal/view"
	"finitefield.org/storefront-widgets/internal/widget"
)

// Options wires the server's collaborators. Store, Bundle and Renderer are
// required.
type Options struct {
	Store    *widget.Store
	Bundle   *i18n.Bundle
	Renderer *view.Renderer
	Sessions *mw.Sessions
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	// API receives add-to-cart calls. Leave it nil when no platform is
	// configured; submissions then settle as failed.
	API cart.API

	RevertDelay    time.Duration
	IdleTTL        time.Duration
	RequestTimeout time.Duration
	// Scheduler overrides the revert timer source, for tests.
	Scheduler cart.Scheduler
}

// Server serves widget fragments, cart operations and state streams.
type Server struct {
	store    *widget.Store
	bundle   *i18n.Bundle
	renderer *view.Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	api      cart.API
	opts     Options

	controllers *registry
	handler     http.Handler
}

// New validates opts and assembles the router.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Bundle == nil || opts.Renderer == nil {
		return nil, errors.New("server: store, bundle and renderer are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sessions == nil {
		opts.Sessions = mw.NewSessions(nil, false)
	}
	if opts.RevertDelay <= 0 {
		opts.RevertDelay = cart.DefaultRevertDelay
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		store:    opts.Store,
		bundle:   opts.Bundle,
		renderer: opts.Renderer,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		api:      opts.API,
		opts:     opts,
	}
	s.controllers = newRegistry(opts.IdleTTL, s.newController, opts.Metrics, opts.Logger)
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMid.RequestID)
	r.Use(chiMid.RealIP)
	r.Use(mw.HTMX)
	r.Use(s.opts.Sessions.Middleware)
	r.Use(mw.Locale(s.bundle))
	r.Use(mw.Logger(s.logger, s.metrics))
	r.Use(chiMid.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Streams are long-lived, so they stay outside the timeout and compression.
	r.Get("/widgets/{id}/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(chiMid.Compress(5))
		r.Use(chiMid.Timeout(s.opts.RequestTimeout))
		r.Use(noStore)

		r.Get("/widgets", s.handleList)
		r.Get("/widgets/{id}", s.handleWidget)
		r.Get("/widgets/{id}/cart", s.handleCart)
		r.Post("/widgets/{id}/cart", s.handleSubmit)
		r.Post("/widgets/{id}/quantity/{op}", s.handleQuantity)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// HTTPServer wraps the handler with the listener timeouts used in production.
// WriteTimeout is left unset because state streams stay open.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run evicts idle controllers until ctx is done, then closes the rest.
func (s *Server) Run(ctx context.Context) {
	s.controllers.run(ctx)
	s.controllers.closeAll()
}

func (s *Server) newController(w *widget.Widget, b *widget.CartButton, lang string) *cart.Controller {
	opts := []cart.Option{
		cart.WithLabels(s.bundle.CartLabels(lang, b.ButtonText)),
		cart.WithMaxQuantity(b.MaxQuantity),
		cart.WithRevertDelay(s.opts.RevertDelay),
		cart.WithLogger(s.logger.With(zap.String("widget_id", w.ID), zap.String("kind", string(w.Kind)))),
	}
	if s.opts.Scheduler != nil {
		opts = append(opts, cart.WithScheduler(s.opts.Scheduler))
	}
	if s.metrics != nil {
		opts = append(opts, cart.WithSettleHook(s.metrics.ObserveSubmit))
	}
	return cart.New(s.api, opts...)
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
