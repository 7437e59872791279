package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"clientdesk/internal/client/handler"
	clientmetrics "clientdesk/internal/client/metrics"
	"clientdesk/internal/client/service"
	"clientdesk/internal/client/store"
	"clientdesk/internal/client/views"
	"clientdesk/internal/platform/config"
	"clientdesk/internal/platform/httpserver"
	"clientdesk/internal/platform/logger"
	"clientdesk/internal/platform/metrics"
	"clientdesk/internal/platform/middleware"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/client.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("error", "text").Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		clientMetrics *clientmetrics.Metrics
		httpMetrics   *metrics.Metrics
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		clientMetrics = clientmetrics.New(reg)
		httpMetrics = metrics.New(reg, reg)
	}

	clients := store.NewInMemory()
	svc := service.New(clients,
		service.WithLogger(log),
		service.WithMetrics(clientMetrics),
	)
	if cfg.SeedSamples {
		if err := svc.Seed(ctx, store.SampleClients()...); err != nil {
			log.Error("failed to seed sample clients", "error", err.Error())
			os.Exit(1)
		}
	}

	pages, err := views.New(svc, log, views.WithMetrics(httpMetrics))
	if err != nil {
		log.Error("failed to load page templates", "error", err.Error())
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if httpMetrics != nil {
		r.Handle("/metrics", httpMetrics.Handler())
	}
	handler.New(svc, log,
		handler.WithMetrics(httpMetrics),
		handler.WithTimeout(cfg.RequestTimeout),
	).Register(r)
	pages.Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting clientdesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err.Error())
		os.Exit(1)
	}
}
