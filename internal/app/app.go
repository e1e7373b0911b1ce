package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"placewatch/presence-server/internal/config"
	"placewatch/presence-server/internal/enrich"
	"placewatch/presence-server/internal/geo"
	"placewatch/presence-server/internal/mqttsub"
	"placewatch/presence-server/internal/pipeline"
	"placewatch/presence-server/internal/roster"
	"placewatch/presence-server/internal/store"
	"placewatch/presence-server/internal/user"
)

// App wires together the presence-server services and manages their
// lifecycle.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	store      *store.Store
	pipeline   *pipeline.Pipeline
	roster     *roster.Roster
	subscriber *mqttsub.Subscriber
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run starts all configured services and blocks until the context is
// cancelled or an error occurs.
func (a *App) Run(ctx context.Context) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	a.store = db

	if err := a.store.InitSchema(ctx); err != nil {
		return err
	}

	defer func() {
		if cerr := a.store.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
	}()

	home := a.cfg.Settings.Home
	enricher, err := enrich.New(a.cfg.Settings.Geocoding, home.Latitude, home.Longitude, a.logger)
	if err != nil {
		return err
	}

	a.roster = roster.New(a.store, a.logger)
	a.pipeline = pipeline.New(
		user.NewResolver(a.cfg.Settings.Users),
		geo.NewClassifier(home.Name, home.Latitude, home.Longitude, home.Radius, a.cfg.Settings.Places),
		enricher,
		a.store,
		a.roster,
		a.logger,
	)

	if a.cfg.MQTTBrokerURL != "" {
		a.subscriber = mqttsub.New(a.cfg.MQTTBrokerURL, a.cfg.MQTTTopic, a.pipeline, a.logger)
		if err := a.subscriber.Start(); err != nil {
			return err
		}
		a.logger.Info("mqtt subscriber started", "broker", a.cfg.MQTTBrokerURL, "topic", a.cfg.MQTTTopic)
	}

	httpErrCh := make(chan error, 2)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: a.routes(),
	}

	go func() {
		a.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		a.logger.Info("metrics server started", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			a.logger.Info("http server stopped")

			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("metrics server shutdown: %w", err)
			}
			a.logger.Info("metrics server stopped")

			if a.subscriber != nil {
				a.subscriber.Stop()
			}
			return nil
		case err := <-httpErrCh:
			if err != nil {
				if a.subscriber != nil {
					a.subscriber.Stop()
				}
				return err
			}
		}
	}
}
