package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/dmitrovk/portal-reconciler/internal/adapters/http"
	"github.com/dmitrovk/portal-reconciler/internal/bootstrap"
	"github.com/dmitrovk/portal-reconciler/internal/config"
	"github.com/dmitrovk/portal-reconciler/internal/observability/logging"
	"github.com/dmitrovk/portal-reconciler/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Init("reconciler-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("reconciler-api")

	router := httpadapter.NewRouter(
		app.SuggestUC,
		app.BindUC,
		app.ResolveUC,
		app.ScanUC,
		httpadapter.WithServerMetrics(serverMetrics),
		httpadapter.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
