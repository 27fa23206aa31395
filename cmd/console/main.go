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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-portal/cmd/mainconfig"
	"github.com/wolfman30/clinic-portal/internal/apiclient"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/console"
	"github.com/wolfman30/clinic-portal/internal/intake"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic portal console",
		"env", cfg.Env,
		"port", cfg.Port,
		"api", cfg.APIBaseURL(),
	)

	ctx := context.Background()
	store, closeStore, err := mainconfig.BuildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sess := session.New(store, logger)
	if err := sess.Bootstrap(ctx); err != nil {
		logger.Error("failed to restore session", "error", err)
		os.Exit(1)
	}

	metricsHandler, portalMetrics := setupMetrics()
	client := apiclient.New(cfg.APIBaseURL(), logger,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithTokenSource(sess),
		apiclient.WithUnauthorizedHandler(sess.HandleUnauthorized),
		apiclient.WithMetrics(portalMetrics),
	)

	exporter, err := mainconfig.BuildExporter(ctx, cfg, client, logger)
	if err != nil {
		logger.Warn("report exports disabled", "error", err)
	}

	limiter := console.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r := console.New(&console.Config{
		Logger:               logger,
		API:                  client,
		Session:              sess,
		Store:                store,
		Submitter:            intake.NewSubmitter(client, client, sess, intake.NewHeuristic(time.Now().UnixNano()), portalMetrics, logger),
		Exporter:             exporter,
		Metrics:              portalMetrics,
		MetricsHandler:       metricsHandler,
		NotificationCapacity: cfg.NotificationCapacity,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		RateLimiter:          limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepVisitors(sweepCtx, limiter)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.PortalMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewPortalMetrics(reg)
}

func sweepVisitors(ctx context.Context, limiter *console.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep(10 * time.Minute)
		}
	}
}
