// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/activity"
	"github.com/matthewbaird/backoffice/internal/event"
	"github.com/matthewbaird/backoffice/internal/eventbus"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
	"github.com/matthewbaird/backoffice/internal/form"
	"github.com/matthewbaird/backoffice/internal/handler"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port         int
	TenantID     uuid.UUID
	Store        fieldstore.Store
	History      activity.Store
	Resolver     *fieldconfig.Resolver
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// Routes holds the handlers behind the router, for wiring event consumers.
type Routes struct {
	Router http.Handler
	Stream *handler.StreamHub
}

// NewRouter registers every route. Settings-changed events are published to
// publisher.
func NewRouter(cfg Config, publisher event.Publisher) Routes {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(logger))
	r.Use(handler.Logging(logger))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	fh := handler.NewFieldSettingsHandler(handler.FieldSettingsConfig{
		Store:        cfg.Store,
		Resolver:     cfg.Resolver,
		TenantID:     cfg.TenantID,
		Publisher:    publisher,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})
	formh := handler.NewFormHandler(form.NewRenderer(cfg.Resolver, cfg.Resolver.Catalog()))
	stream := handler.NewStreamHub(logger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", fh.GetCatalog)
		r.Get("/field-config/{category}", fh.GetFieldConfig)

		r.Get("/field-settings/events", stream.ServeHTTP)
		r.Get("/field-settings/{category}", fh.ListFieldSettings)
		r.Put("/field-settings/{category}", fh.UpdateFieldSettings)
		r.Delete("/field-settings/{category}", fh.ResetFieldSettings)
		if cfg.History != nil {
			ah := handler.NewActivityHandler(cfg.History, cfg.TenantID, logger)
			r.Get("/field-settings/{category}/activity", ah.GetCategoryActivity)
		}

		r.Post("/forms/{category}", formh.RenderForm)
	})

	return Routes{Router: r, Stream: stream}
}

// Run listens on cfg.Port and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", cfg.Port, err)
	}
	return Serve(ctx, cfg, ln)
}

// Serve starts the event bus and the HTTP server on ln. When ctx is cancelled
// the server stops accepting requests, lets in-flight requests finish, and
// only then stops the bus so their events are still delivered.
func Serve(ctx context.Context, cfg Config, ln net.Listener) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := eventbus.New(256, logger)
	routes := NewRouter(cfg, bus)

	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	if cfg.History != nil {
		bus.Subscribe("activity", activity.NewIndexer(cfg.History))
	}
	bus.Subscribe("stream", routes.Stream)
	bus.Start(context.WithoutCancel(ctx))
	defer bus.Stop()

	logger.Info("starting server",
		slog.String("addr", ln.Addr().String()),
		slog.String("tenant", cfg.TenantID.String()))

	// Request contexts are not derived from ctx: a shutdown must not cancel
	// a save halfway through its rows.
	server := &http.Server{
		Handler:           routes.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", slog.Any("error", err))
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	logger.Info("server stopped")
	return nil
}
