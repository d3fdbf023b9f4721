package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/bootstrap"
	"github.com/dmitrovk/portal-reconciler/internal/config"
	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
	"github.com/dmitrovk/portal-reconciler/internal/observability/logging"
	"github.com/dmitrovk/portal-reconciler/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Init("reconciler-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("reconciler-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSyncSubject)
	err = app.Queue.SubscribeRecordSynced(ctx, func(handlerCtx context.Context, recordID string) error {
		scanCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		workerMetrics.StartScan()
		start := time.Now()
		matches, err := app.ScanUC.ScanRecord(scanCtx, recordID)
		workerMetrics.FinishScan("reconciler-worker", time.Since(start), len(matches), err)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return nil
		}

		rec, err := app.Records.GetByID(scanCtx, recordID)
		if err != nil {
			return err
		}
		return app.Queue.PublishSuggestions(scanCtx, domain.RecordSuggestions{
			Record:  *rec,
			Matches: matches,
		})
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
