package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"blocknexus/internal/kyc"
	kychandler "blocknexus/internal/kyc/handler"
	kycmetrics "blocknexus/internal/kyc/metrics"
	"blocknexus/internal/medium"
	"blocknexus/internal/platform/config"
	"blocknexus/internal/platform/httpserver"
	"blocknexus/internal/platform/logger"
	"blocknexus/internal/platform/metrics"
	"blocknexus/internal/platform/middleware"
	"blocknexus/pkg/platform/httputil"
)

const shutdownTimeout = 10 * time.Second

// main wires the record store to its medium and serves the HTTP API until
// SIGINT or SIGTERM.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	config.LoadDotEnv(log)
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, closeMedium, err := medium.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMedium(); err != nil {
			log.Warn("failed to close storage medium", "error", err)
		}
	}()

	opts := []kyc.Option{
		kyc.WithLogger(log),
		kyc.WithMetrics(kycmetrics.New(prometheus.DefaultRegisterer)),
	}
	if cfg.ExportDir != "" {
		sink, err := kyc.NewDirSink(cfg.ExportDir)
		if err != nil {
			return err
		}
		opts = append(opts, kyc.WithArtifactSink(sink))
	}
	store := kyc.New(m, opts...)

	srv := httpserver.New(cfg.Addr, newRouter(cfg, store, m, log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting blocknexus", "addr", cfg.Addr, "storage_backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(cfg config.Server, store *kyc.Store, m medium.Medium, log *slog.Logger) http.Handler {
	httpMetrics := metrics.New(prometheus.DefaultRegisterer)
	h := kychandler.New(store, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestMetadata)
	r.Use(middleware.AccessLog(log))
	r.Use(httpMetrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader, "X-Admin-Token"},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if hr, ok := m.(medium.HealthReporter); ok && !hr.Healthy() {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "storage": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.AdminToken, log))
		h.RegisterAdmin(r)
	})
	return r
}
